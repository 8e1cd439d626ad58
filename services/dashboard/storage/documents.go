package storage

import (
	"fmt"
	"sort"
	"strings"

	"github.com/iulianpascalau/iot-sensor-dashboard/services/dashboard/common"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const (
	emptyDocument = "{}"
	keySeparator  = '\x00'
)

// applyFields writes the fields on top of body (or on an empty object when body is nil) in key order
func applyFields(body []byte, fields map[string]interface{}) ([]byte, error) {
	if len(body) == 0 || !gjson.ValidBytes(body) || !gjson.ParseBytes(body).IsObject() {
		body = []byte(emptyDocument)
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var err error
	for _, k := range keys {
		body, err = sjson.SetBytes(body, common.JSONPath(k), fields[k])
		if err != nil {
			return nil, fmt.Errorf("failed to set field %q: %w", k, err)
		}
	}

	return body, nil
}

func checkKey(collection string, id string) error {
	if len(collection) == 0 || strings.ContainsRune(collection, keySeparator) {
		return fmt.Errorf("%w: %q", common.ErrInvalidCollection, collection)
	}
	if len(id) == 0 {
		return fmt.Errorf("%w: empty id", common.ErrInvalidDocumentID)
	}

	return nil
}

func unavailable(operation string, err error) error {
	return fmt.Errorf("%w: %s: %v", common.ErrStoreUnavailable, operation, err)
}
