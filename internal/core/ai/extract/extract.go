package extract

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"lifequest/internal/pkg/common"

	"go.uber.org/zap"
)

// Shape 預期的 JSON 頂層形狀
type Shape int

const (
	ShapeArray Shape = iota
	ShapeObject
)

func (s Shape) String() string {
	if s == ShapeObject {
		return "object"
	}
	return "array"
}

// previewLen 錯誤中保留的原文長度
const previewLen = 500

// ErrUnparseable 所有解析嘗試都失敗
var ErrUnparseable = errors.New("unparseable AI response")

// ParseError 解析失敗，Preview 只供日誌使用
type ParseError struct {
	Shape    Shape
	Attempts int
	Preview  string
	Last     error
}

func (e *ParseError) Error() string {
	if e.Last != nil {
		return fmt.Sprintf("%s: %d attempts for %s payload, last error: %v", ErrUnparseable, e.Attempts, e.Shape, e.Last)
	}
	return fmt.Sprintf("%s: no %s payload found", ErrUnparseable, e.Shape)
}

// Is 讓 errors.Is(err, ErrUnparseable) 成立
func (e *ParseError) Is(target error) bool {
	return target == ErrUnparseable
}

func (e *ParseError) Unwrap() error {
	return e.Last
}

// holderKeys 包裝陣列的常見外層鍵
var holderKeys = []string{"meals", "items", "articles", "recipes", "data"}

// Payload 解析成功的結果，Array 與 Object 依 Kind 擇一
type Payload struct {
	Kind   Shape
	Array  []interface{}
	Object map[string]interface{}
}

// Records 以物件陣列形式取出紀錄，非物件元素會被略過
func (p *Payload) Records() []map[string]interface{} {
	if p == nil {
		return nil
	}
	if p.Kind == ShapeArray {
		return objects(p.Array)
	}
	for _, key := range holderKeys {
		if arr, ok := p.Object[key].([]interface{}); ok {
			return objects(arr)
		}
	}
	if len(p.Object) == 1 {
		for _, v := range p.Object {
			if arr, ok := v.([]interface{}); ok {
				return objects(arr)
			}
		}
	}
	return []map[string]interface{}{p.Object}
}

// First 取第一筆紀錄
func (p *Payload) First() (map[string]interface{}, bool) {
	records := p.Records()
	if len(records) == 0 {
		return nil, false
	}
	return records[0], true
}

func objects(arr []interface{}) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(arr))
	for _, v := range arr {
		if m, ok := v.(map[string]interface{}); ok {
			out = append(out, m)
		}
	}
	return out
}

var fencePattern = regexp.MustCompile("(?is)```[ \\t]*json[ \\t]*\\r?\\n?(.*?)```")

// Extract 從模型輸出中取出 JSON：先試 ```json 區塊，再試括號範圍
func Extract(text string, shape Shape) (*Payload, error) {
	perr := &ParseError{Shape: shape, Preview: common.Preview(text, previewLen)}

	for _, m := range fencePattern.FindAllStringSubmatch(text, -1) {
		if p, err := parseCandidate(m[1], perr); err == nil {
			return p, nil
		}
	}

	opening, closing := "[", "]"
	if shape == ShapeObject {
		opening, closing = "{", "}"
	}
	start := strings.Index(text, opening)
	end := strings.LastIndex(text, closing)
	if start >= 0 && end > start {
		if p, err := parseCandidate(text[start:end+1], perr); err == nil {
			return p, nil
		}
	}

	return nil, perr
}

// parseCandidate 嚴格解析，失敗時修復後再試一次
func parseCandidate(raw string, perr *ParseError) (*Payload, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrUnparseable
	}

	perr.Attempts++
	p, err := decode(raw)
	if err == nil {
		return p, nil
	}
	perr.Last = err

	repaired := Repair(raw)
	if repaired == raw {
		return nil, err
	}
	perr.Attempts++
	p, err = decode(repaired)
	if err != nil {
		perr.Last = err
		return nil, err
	}
	common.LogDebug("JSON 修復後解析成功", zap.Int("length", len(raw)))
	return p, nil
}

func decode(raw string) (*Payload, error) {
	var v interface{}
	if err := common.ParseJSON(raw, &v); err != nil {
		return nil, err
	}
	switch val := v.(type) {
	case []interface{}:
		return &Payload{Kind: ShapeArray, Array: val}, nil
	case map[string]interface{}:
		return &Payload{Kind: ShapeObject, Object: val}, nil
	default:
		return nil, fmt.Errorf("unexpected top-level JSON %T", v)
	}
}

// WrapFailure 記錄原始輸出預覽，並轉為對外的解析錯誤
func WrapFailure(purpose string, err error) error {
	fields := []zap.Field{zap.String("purpose", purpose), zap.Error(err)}
	var perr *ParseError
	if errors.As(err, &perr) {
		fields = append(fields, zap.Int("attempts", perr.Attempts), zap.String("raw_preview", perr.Preview))
	}
	common.LogError("AI 回應無法解析", fields...)
	return common.Wrap(common.ErrAIParse, err)
}
