package api

import "encoding/json"

// optional 区分 JSON 字段缺失和显式的 null。
type optional[T any] struct {
	Set   bool
	Value *T
}

func (o *optional[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

func (o optional[T]) ptr() *T {
	if !o.Set {
		return nil
	}
	return o.Value
}
