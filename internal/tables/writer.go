package tables

import (
	"encoding/json"
	"fmt"
	"io"

	kgzip "github.com/klauspost/compress/gzip"
	kzstd "github.com/klauspost/compress/zstd"
	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress"
	gzipcodec "github.com/parquet-go/parquet-go/compress/gzip"
	zstdcodec "github.com/parquet-go/parquet-go/compress/zstd"

	"github.com/veridata/parqgen/internal/config"
)

// Writer serializes event rows into a parquet payload. It is safe for
// concurrent use: each Write call builds an independent parquet writer.
type Writer struct {
	format config.Format
	codec  compress.Codec
}

// NewWriter creates a writer for the given complex-column format and
// compression codec name (none, snappy, zstd or gzip).
func NewWriter(format config.Format, compression string) (*Writer, error) {
	codec, err := codecFor(compression)
	if err != nil {
		return nil, err
	}
	return &Writer{format: format, codec: codec}, nil
}

// codecFor maps a compression name onto a parquet codec.
func codecFor(name string) (compress.Codec, error) {
	switch name {
	case "none":
		return &parquet.Uncompressed, nil
	case "snappy":
		return &parquet.Snappy, nil
	case "zstd":
		return &zstdcodec.Codec{Level: kzstd.SpeedDefault}, nil
	case "gzip":
		return &gzipcodec.Codec{Level: kgzip.DefaultCompression}, nil
	default:
		return nil, fmt.Errorf("unknown compression codec: %s", name)
	}
}

// Write serializes rows to dst and returns the number of bytes written.
func (w *Writer) Write(dst io.Writer, rows []EventRow) (int64, error) {
	cw := &countingWriter{w: dst}

	switch w.format {
	case config.FormatJSON:
		jrows, err := toJSONRows(rows)
		if err != nil {
			return 0, err
		}
		gw := parquet.NewGenericWriter[eventRowJSON](cw, parquet.Compression(w.codec))
		if _, err := gw.Write(jrows); err != nil {
			return cw.n, fmt.Errorf("write parquet rows: %w", err)
		}
		if err := gw.Close(); err != nil {
			return cw.n, fmt.Errorf("close parquet writer: %w", err)
		}
	default:
		gw := parquet.NewGenericWriter[EventRow](cw, parquet.Compression(w.codec))
		if _, err := gw.Write(rows); err != nil {
			return cw.n, fmt.Errorf("write parquet rows: %w", err)
		}
		if err := gw.Close(); err != nil {
			return cw.n, fmt.Errorf("close parquet writer: %w", err)
		}
	}

	return cw.n, nil
}

// toJSONRows flattens complex columns into JSON strings.
func toJSONRows(rows []EventRow) ([]eventRowJSON, error) {
	out := make([]eventRowJSON, len(rows))
	for i := range rows {
		r := &rows[i]
		j := eventRowJSON{
			BizID:          r.BizID,
			UserID:         r.UserID,
			ChannelCode:    r.ChannelCode,
			EventDate:      r.EventDate,
			OrderID:        r.OrderID,
			ProductID:      r.ProductID,
			ShopID:         r.ShopID,
			CategoryID:     r.CategoryID,
			BrandID:        r.BrandID,
			DeviceID:       r.DeviceID,
			SessionID:      r.SessionID,
			RegionCode:     r.RegionCode,
			CityCode:       r.CityCode,
			Platform:       r.Platform,
			OSType:         r.OSType,
			AppVersion:     r.AppVersion,
			NetworkType:    r.NetworkType,
			UserLevel:      r.UserLevel,
			Gender:         r.Gender,
			Age:            r.Age,
			VIPFlag:        r.VIPFlag,
			RiskLevel:      r.RiskLevel,
			EventDatetime:  r.EventDatetime,
			OrderDatetime:  r.OrderDatetime,
			PayDatetime:    r.PayDatetime,
			CreateTime:     r.CreateTime,
			UpdateTime:     r.UpdateTime,
			ETLTime:        r.ETLTime,
			OrderAmount:    r.OrderAmount,
			PayAmount:      r.PayAmount,
			DiscountAmount: r.DiscountAmount,
			RefundAmount:   r.RefundAmount,
			CostAmount:     r.CostAmount,
			ProfitAmount:   r.ProfitAmount,
			ItemCnt:        r.ItemCnt,
			SkuCnt:         r.SkuCnt,
			OrderCnt:       r.OrderCnt,
			RefundCnt:      r.RefundCnt,
			StayTime:       r.StayTime,
			Score:          r.Score,
			CreditScore:    r.CreditScore,
			RiskScore:      r.RiskScore,
			IsNewUser:      r.IsNewUser,
			UserTag:        r.UserTag,
			Remark:         r.Remark,
			TraceID:        r.TraceID,
			ExtJSON:        r.ExtJSON,
		}

		if r.ProductIDList != nil {
			s, err := jsonString(r.ProductIDList)
			if err != nil {
				return nil, err
			}
			j.ProductIDList = s
		}
		if r.ExtKVMap != nil {
			s, err := jsonString(r.ExtKVMap)
			if err != nil {
				return nil, err
			}
			j.ExtKVMap = s
		}
		if r.Profile != nil {
			s, err := jsonString(r.Profile)
			if err != nil {
				return nil, err
			}
			j.Profile = s
		}

		out[i] = j
	}
	return out, nil
}

func jsonString(v any) (*string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode complex column: %w", err)
	}
	s := string(data)
	return &s, nil
}

// countingWriter counts bytes passing through to the underlying writer.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
