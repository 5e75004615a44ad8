package vault

import "encoding/json"

// Marshal serializes the record map to the plaintext vault payload: a JSON
// object keyed by service name. All fields are kept, including empty notes,
// so a round trip through Unmarshal reproduces the map exactly.
func Marshal(records map[string]Record) ([]byte, error) {
	if records == nil {
		records = map[string]Record{}
	}
	return json.MarshalIndent(records, "", "  ")
}

// Unmarshal parses a plaintext vault payload. A parse failure returns
// ErrWrongPassword: after a decrypt that passed padding checks, unparseable
// bytes mean the key was wrong or the file is corrupt, and the two must not
// be told apart. The JSON error itself is dropped because its context can
// echo decrypted bytes.
func Unmarshal(data []byte) (map[string]Record, error) {
	var records map[string]Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, ErrWrongPassword
	}
	if records == nil {
		records = map[string]Record{}
	}
	for service, rec := range records {
		rec.Service = service
		records[service] = rec
	}
	return records, nil
}
