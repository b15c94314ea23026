package models

import "encoding/json"

// Envelope is the response body of every local API route.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}

// OK builds a success envelope for data.
func OK(data any) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Success: true, Data: raw}, nil
}

// Fail builds a failure envelope carrying message.
func Fail(message string) Envelope {
	return Envelope{Success: false, Message: message}
}

// Decode unmarshals the data payload into v.
func (e Envelope) Decode(v any) error {
	if len(e.Data) == 0 || string(e.Data) == "null" {
		return nil
	}
	return json.Unmarshal(e.Data, v)
}
