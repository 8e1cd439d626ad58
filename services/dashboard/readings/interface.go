package readings

import "github.com/iulianpascalau/iot-sensor-dashboard/services/dashboard/common"

// DocumentParser defines the operation of turning one raw document into canonical readings
type DocumentParser interface {
	Parse(doc common.RawDocument) ParseResult
	IsInterfaceNil() bool
}
