// Package synth produces synthetic commerce-event rows. A Synthesizer is
// deterministic for a given seed and is not safe for concurrent use; every
// worker and every sampler owns its own instance.
package synth

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/veridata/parqgen/internal/tables"
)

var (
	channelCodes = []string{
		"APP001", "WEB001", "H5001", "API001", "WX001",
		"ALI001", "JD001", "PDD001", "MINI001", "PC001",
	}
	platforms    = []string{"iOS", "Android", "Web", "H5", "MiniProgram", "PC"}
	osTypes      = []string{"iOS", "Android", "Windows", "MacOS", "Linux"}
	networkTypes = []string{"4G", "5G", "WiFi", "3G", "Ethernet"}
	userTags     = []string{
		"new_user", "active_user", "dormant_user", "churned_user",
		"high_value_user", "regular_user", "vip_user", "blocked_user",
	}
	remarks = []string{
		"regular_order", "coupon_order", "flash_sale_order", "group_buy_order",
		"presale_order", "limited_time_deal", "threshold_discount",
		"new_user_exclusive", "member_privilege",
	}
	profileGenders = []string{"male", "female", "unknown"}
	extMapKeys     = []string{
		"source", "medium", "campaign", "term", "content",
		"referrer", "landing_page", "utm_source",
	}
)

const hexDigits = "0123456789abcdef"

var (
	eventDateStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	eventDateEnd   = time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)
)

// Synthesizer generates event rows from a seeded random stream.
type Synthesizer struct {
	r        *rand.Rand
	nullRate float64
}

// New creates a synthesizer. nullRate is the probability that each optional
// column of a row is null.
func New(seed int64, nullRate float64) *Synthesizer {
	return &Synthesizer{
		r:        rand.New(rand.NewSource(seed)),
		nullRate: nullRate,
	}
}

// Row generates the next event row in the stream.
func (s *Synthesizer) Row() (tables.EventRow, error) {
	eventDate := s.eventDate()

	row := tables.EventRow{
		BizID:       int32(s.between(1, 100)),
		UserID:      s.between(100000, 999999999),
		ChannelCode: s.pick(channelCodes),
		EventDate:   eventDate.Format("2006-01-02"),

		OrderID:    s.maybeInt64(1000000000, 9999999999),
		ProductID:  s.maybeInt64(10000, 999999),
		ShopID:     s.maybeInt64(1000, 99999),
		CategoryID: s.maybeInt64(100, 9999),
		BrandID:    s.maybeInt64(100, 9999),

		DeviceID:    s.maybeHex(32),
		SessionID:   s.maybeHex(32),
		RegionCode:  s.maybeDigits(100000, 999999),
		CityCode:    s.maybeDigits(100000, 999999),
		Platform:    s.maybePick(platforms),
		OSType:      s.maybePick(osTypes),
		AppVersion:  s.maybeVersion(),
		NetworkType: s.maybePick(networkTypes),

		UserLevel: s.maybeInt32(1, 10),
		Gender:    s.maybeInt32(0, 2),
		Age:       s.maybeInt32(18, 80),
		VIPFlag:   s.maybeBool(),
		RiskLevel: s.maybeInt32(0, 5),

		EventDatetime: s.maybeDatetime(eventDate),
		OrderDatetime: s.maybeDatetime(eventDate),
		PayDatetime:   s.maybeDatetime(eventDate),
		CreateTime:    s.maybeDatetime(eventDate),
		UpdateTime:    s.maybeDatetime(eventDate),
		ETLTime:       s.maybeDatetime(eventDate),

		OrderAmount:    s.maybeAmount(50000),
		PayAmount:      s.maybeAmount(50000),
		DiscountAmount: s.maybeAmount(5000),
		RefundAmount:   s.maybeAmount(10000),
		CostAmount:     s.maybeAmount(30000),
		ProfitAmount:   s.maybeAmount(20000),

		ItemCnt:   s.maybeInt32(0, 50),
		SkuCnt:    s.maybeInt32(0, 100),
		OrderCnt:  s.maybeInt32(0, 20),
		RefundCnt: s.maybeInt32(0, 10),
		StayTime:  s.maybeInt64(1, 7200),

		Score:       s.maybeScore(),
		CreditScore: s.maybeScore(),
		RiskScore:   s.maybeScore(),

		IsNewUser: s.maybeBool(),
		UserTag:   s.maybePick(userTags),
		Remark:    s.maybePick(remarks),
		TraceID:   s.maybeHex(32),

		ProductIDList: s.maybeProductIDs(),
		ExtKVMap:      s.maybeExtKV(),
		Profile:       s.maybeProfile(),
	}

	extJSON, err := s.maybeExtJSON()
	if err != nil {
		return tables.EventRow{}, err
	}
	row.ExtJSON = extJSON

	return row, nil
}

// present reports whether an optional column should carry a value.
func (s *Synthesizer) present() bool {
	return s.r.Float64() >= s.nullRate
}

// between returns a uniform value in [lo, hi].
func (s *Synthesizer) between(lo, hi int64) int64 {
	return lo + s.r.Int63n(hi-lo+1)
}

func (s *Synthesizer) pick(values []string) string {
	return values[s.r.Intn(len(values))]
}

func (s *Synthesizer) maybePick(values []string) *string {
	if !s.present() {
		return nil
	}
	v := s.pick(values)
	return &v
}

func (s *Synthesizer) maybeInt64(lo, hi int64) *int64 {
	if !s.present() {
		return nil
	}
	v := s.between(lo, hi)
	return &v
}

func (s *Synthesizer) maybeInt32(lo, hi int64) *int32 {
	if !s.present() {
		return nil
	}
	v := int32(s.between(lo, hi))
	return &v
}

func (s *Synthesizer) maybeBool() *bool {
	if !s.present() {
		return nil
	}
	v := s.r.Intn(2) == 1
	return &v
}

func (s *Synthesizer) maybeHex(length int) *string {
	if !s.present() {
		return nil
	}
	b := make([]byte, length)
	for i := range b {
		b[i] = hexDigits[s.r.Intn(len(hexDigits))]
	}
	v := string(b)
	return &v
}

func (s *Synthesizer) maybeDigits(lo, hi int64) *string {
	if !s.present() {
		return nil
	}
	v := fmt.Sprintf("%d", s.between(lo, hi))
	return &v
}

func (s *Synthesizer) maybeVersion() *string {
	if !s.present() {
		return nil
	}
	v := fmt.Sprintf("%d.%d.%d", s.between(1, 5), s.between(0, 20), s.between(0, 30))
	return &v
}

// eventDate picks a uniformly distributed day within the table's date range.
func (s *Synthesizer) eventDate() time.Time {
	days := int64(eventDateEnd.Sub(eventDateStart).Hours() / 24)
	return eventDateStart.AddDate(0, 0, int(s.between(0, days)))
}

func (s *Synthesizer) maybeDatetime(base time.Time) *string {
	if !s.present() {
		return nil
	}
	t := base.Add(
		time.Duration(s.between(0, 23))*time.Hour +
			time.Duration(s.between(0, 59))*time.Minute +
			time.Duration(s.between(0, 59))*time.Second,
	)
	v := t.Format("2006-01-02 15:04:05")
	return &v
}

// maybeAmount returns a monetary value in [0, max] rounded to 2 decimals.
func (s *Synthesizer) maybeAmount(max float64) *float64 {
	if !s.present() {
		return nil
	}
	v := float64(int64(s.r.Float64()*max*100)) / 100
	return &v
}

func (s *Synthesizer) maybeScore() *float64 {
	if !s.present() {
		return nil
	}
	v := float64(int64(s.r.Float64()*100*100)) / 100
	return &v
}

func (s *Synthesizer) maybeProductIDs() []int64 {
	if !s.present() {
		return nil
	}
	n := int(s.between(1, 10))
	ids := make([]int64, n)
	for i := range ids {
		ids[i] = s.between(10000, 999999)
	}
	return ids
}

func (s *Synthesizer) maybeExtKV() map[string]string {
	if !s.present() {
		return nil
	}
	n := int(s.between(1, 5))
	perm := s.r.Perm(len(extMapKeys))
	kv := make(map[string]string, n)
	for _, idx := range perm[:n] {
		kv[extMapKeys[idx]] = fmt.Sprintf("value_%d", s.between(1, 100))
	}
	return kv
}

func (s *Synthesizer) maybeProfile() *tables.UserProfile {
	if !s.present() {
		return nil
	}
	return &tables.UserProfile{
		Age:    int32(s.between(18, 80)),
		Gender: s.pick(profileGenders),
		Level:  int32(s.between(1, 10)),
	}
}

func (s *Synthesizer) maybeExtJSON() (*string, error) {
	if !s.present() {
		return nil, nil
	}
	payload := map[string]any{
		"extra_field_1": s.between(1, 100),
		"extra_field_2": fmt.Sprintf("value_%d", s.between(1, 100)),
		"extra_field_3": s.r.Intn(2) == 1,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode ext_json: %w", err)
	}
	v := string(data)
	return &v, nil
}
