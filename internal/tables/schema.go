package tables

// UserProfile is the nested group column carried by every event row.
type UserProfile struct {
	Age    int32  `parquet:"age" json:"age"`
	Gender string `parquet:"gender" json:"gender"`
	Level  int32  `parquet:"level" json:"level"`
}

// EventRow is a single row of the synthetic commerce-event table.
// Required columns are plain values; nullable columns are pointers.
// Complex columns use native parquet LIST/MAP/group encoding.
type EventRow struct {
	// Required identity fields
	BizID       int32  `parquet:"biz_id"`
	UserID      int64  `parquet:"user_id"`
	ChannelCode string `parquet:"channel_code"`
	EventDate   string `parquet:"event_date"`

	// Entity references
	OrderID    *int64 `parquet:"order_id,optional"`
	ProductID  *int64 `parquet:"product_id,optional"`
	ShopID     *int64 `parquet:"shop_id,optional"`
	CategoryID *int64 `parquet:"category_id,optional"`
	BrandID    *int64 `parquet:"brand_id,optional"`

	// Session / device dimensions
	DeviceID    *string `parquet:"device_id,optional"`
	SessionID   *string `parquet:"session_id,optional"`
	RegionCode  *string `parquet:"region_code,optional"`
	CityCode    *string `parquet:"city_code,optional"`
	Platform    *string `parquet:"platform,optional"`
	OSType      *string `parquet:"os_type,optional"`
	AppVersion  *string `parquet:"app_version,optional"`
	NetworkType *string `parquet:"network_type,optional"`

	// User attributes
	UserLevel *int32 `parquet:"user_level,optional"`
	Gender    *int32 `parquet:"gender,optional"`
	Age       *int32 `parquet:"age,optional"`
	VIPFlag   *bool  `parquet:"vip_flag,optional"`
	RiskLevel *int32 `parquet:"risk_level,optional"`

	// Timestamps (formatted strings, matching the upstream table contract)
	EventDatetime *string `parquet:"event_datetime,optional"`
	OrderDatetime *string `parquet:"order_datetime,optional"`
	PayDatetime   *string `parquet:"pay_datetime,optional"`
	CreateTime    *string `parquet:"create_time,optional"`
	UpdateTime    *string `parquet:"update_time,optional"`
	ETLTime       *string `parquet:"etl_time,optional"`

	// Monetary amounts
	OrderAmount    *float64 `parquet:"order_amount,optional"`
	PayAmount      *float64 `parquet:"pay_amount,optional"`
	DiscountAmount *float64 `parquet:"discount_amount,optional"`
	RefundAmount   *float64 `parquet:"refund_amount,optional"`
	CostAmount     *float64 `parquet:"cost_amount,optional"`
	ProfitAmount   *float64 `parquet:"profit_amount,optional"`

	// Counters
	ItemCnt   *int32 `parquet:"item_cnt,optional"`
	SkuCnt    *int32 `parquet:"sku_cnt,optional"`
	OrderCnt  *int32 `parquet:"order_cnt,optional"`
	RefundCnt *int32 `parquet:"refund_cnt,optional"`
	StayTime  *int64 `parquet:"stay_time,optional"`

	// Scores
	Score       *float64 `parquet:"score,optional"`
	CreditScore *float64 `parquet:"credit_score,optional"`
	RiskScore   *float64 `parquet:"risk_score,optional"`

	// Flags and labels
	IsNewUser *bool   `parquet:"is_new_user,optional"`
	UserTag   *string `parquet:"user_tag,optional"`
	Remark    *string `parquet:"remark,optional"`
	TraceID   *string `parquet:"trace_id,optional"`

	// Complex columns
	ProductIDList []int64           `parquet:"product_id_list,list,optional"`
	ExtKVMap      map[string]string `parquet:"ext_kv_map,optional"`
	Profile       *UserProfile      `parquet:"user_profile,optional"`
	ExtJSON       *string           `parquet:"ext_json,optional"`
}

// TableName returns the canonical table name.
func (EventRow) TableName() string {
	return "synthetic_events"
}

// eventRowJSON mirrors EventRow with the complex columns flattened into JSON
// strings, for engines that cannot read nested parquet types.
type eventRowJSON struct {
	BizID       int32  `parquet:"biz_id"`
	UserID      int64  `parquet:"user_id"`
	ChannelCode string `parquet:"channel_code"`
	EventDate   string `parquet:"event_date"`

	OrderID    *int64 `parquet:"order_id,optional"`
	ProductID  *int64 `parquet:"product_id,optional"`
	ShopID     *int64 `parquet:"shop_id,optional"`
	CategoryID *int64 `parquet:"category_id,optional"`
	BrandID    *int64 `parquet:"brand_id,optional"`

	DeviceID    *string `parquet:"device_id,optional"`
	SessionID   *string `parquet:"session_id,optional"`
	RegionCode  *string `parquet:"region_code,optional"`
	CityCode    *string `parquet:"city_code,optional"`
	Platform    *string `parquet:"platform,optional"`
	OSType      *string `parquet:"os_type,optional"`
	AppVersion  *string `parquet:"app_version,optional"`
	NetworkType *string `parquet:"network_type,optional"`

	UserLevel *int32 `parquet:"user_level,optional"`
	Gender    *int32 `parquet:"gender,optional"`
	Age       *int32 `parquet:"age,optional"`
	VIPFlag   *bool  `parquet:"vip_flag,optional"`
	RiskLevel *int32 `parquet:"risk_level,optional"`

	EventDatetime *string `parquet:"event_datetime,optional"`
	OrderDatetime *string `parquet:"order_datetime,optional"`
	PayDatetime   *string `parquet:"pay_datetime,optional"`
	CreateTime    *string `parquet:"create_time,optional"`
	UpdateTime    *string `parquet:"update_time,optional"`
	ETLTime       *string `parquet:"etl_time,optional"`

	OrderAmount    *float64 `parquet:"order_amount,optional"`
	PayAmount      *float64 `parquet:"pay_amount,optional"`
	DiscountAmount *float64 `parquet:"discount_amount,optional"`
	RefundAmount   *float64 `parquet:"refund_amount,optional"`
	CostAmount     *float64 `parquet:"cost_amount,optional"`
	ProfitAmount   *float64 `parquet:"profit_amount,optional"`

	ItemCnt   *int32 `parquet:"item_cnt,optional"`
	SkuCnt    *int32 `parquet:"sku_cnt,optional"`
	OrderCnt  *int32 `parquet:"order_cnt,optional"`
	RefundCnt *int32 `parquet:"refund_cnt,optional"`
	StayTime  *int64 `parquet:"stay_time,optional"`

	Score       *float64 `parquet:"score,optional"`
	CreditScore *float64 `parquet:"credit_score,optional"`
	RiskScore   *float64 `parquet:"risk_score,optional"`

	IsNewUser *bool   `parquet:"is_new_user,optional"`
	UserTag   *string `parquet:"user_tag,optional"`
	Remark    *string `parquet:"remark,optional"`
	TraceID   *string `parquet:"trace_id,optional"`

	ProductIDList *string `parquet:"product_id_list,optional"`
	ExtKVMap      *string `parquet:"ext_kv_map,optional"`
	Profile       *string `parquet:"user_profile,optional"`
	ExtJSON       *string `parquet:"ext_json,optional"`
}

// SchemaVersion is the version of the synthetic event schema.
// Increment this when making breaking changes.
const SchemaVersion = "1.0.0"
