package serde

import "github.com/cachefall/cachefall"

var StringDeserializer = func(data []byte) (string, error) {
	return string(data), nil
}

var StringSerializer = func(data string) ([]byte, error) {
	return []byte(data), nil
}

var String = cachefall.SerDe[string]{
	Serializer:   StringSerializer,
	Deserializer: StringDeserializer,
}
