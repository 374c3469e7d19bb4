package models

import (
	jsoniter "github.com/json-iterator/go"
	"gorm.io/datatypes"
)

// EncodeMap flattens any JSON-serializable value into a JSON column value.
func EncodeMap(src any) datatypes.JSONMap {
	out := datatypes.JSONMap{}
	raw, err := jsoniter.Marshal(src)
	if err != nil {
		return out
	}
	_ = jsoniter.Unmarshal(raw, &out)
	return out
}
