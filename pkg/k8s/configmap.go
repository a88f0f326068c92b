package k8s

import "encoding/json"

func jsonMarshalData(data map[string]string) ([]byte, error) {
	if data == nil {
		data = map[string]string{}
	}
	return json.Marshal(data)
}

func jsonUnmarshalData(raw []byte) (map[string]string, error) {
	var data map[string]string
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return data, nil
}
