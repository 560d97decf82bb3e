package model

import "encoding/json"

// EncodeEntity serializes an entity for durable storage.
func EncodeEntity(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// DecodeEntity deserializes an entity from durable storage.
func DecodeEntity(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}
