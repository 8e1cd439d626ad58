package common

import "time"

// RawDocument is a stored document as written by the gateway: an id and a JSON object body
type RawDocument struct {
	ID   string
	Body []byte
}

// Reading is one canonical (sensor, metric, value, time) observation
type Reading struct {
	SensorID  string    `json:"sensorId"`
	Metric    string    `json:"metric"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadingKey identifies a reading series
type ReadingKey struct {
	SensorID string
	Metric   string
}

// Key returns the series key of the reading
func (r Reading) Key() ReadingKey {
	return ReadingKey{
		SensorID: r.SensorID,
		Metric:   r.Metric,
	}
}

// Stream is the output of a stream build: the surviving readings and every field that could not be parsed
type Stream struct {
	Readings    []Reading     `json:"readings"`
	ParseErrors []*ParseError `json:"-"`
}

// Bounds holds the optional min and max thresholds of one metric
type Bounds struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// ThresholdConfig is the per-sensor alerting configuration
type ThresholdConfig struct {
	SensorID string            `json:"sensorId"`
	Name     string            `json:"name"`
	Bounds   map[string]Bounds `json:"bounds"`
}

// BoundsFor returns the bounds configured for the metric, if any
func (tc *ThresholdConfig) BoundsFor(metric string) (Bounds, bool) {
	if tc == nil || tc.Bounds == nil {
		return Bounds{}, false
	}

	b, ok := tc.Bounds[metric]
	return b, ok
}

// Misconfigured returns true if both bounds are set for the metric and min is greater than max
func (tc *ThresholdConfig) Misconfigured(metric string) bool {
	b, ok := tc.BoundsFor(metric)
	if !ok || b.Min == nil || b.Max == nil {
		return false
	}

	return *b.Min > *b.Max
}

// ThresholdPatch is a column-sparse threshold update. Nil or absent entries keep the stored values.
type ThresholdPatch struct {
	Name *string
	Min  map[string]float64
	Max  map[string]float64
}

// IsEmpty returns true if the patch carries no field
func (p ThresholdPatch) IsEmpty() bool {
	return p.Name == nil && len(p.Min) == 0 && len(p.Max) == 0
}

// AlertState is the derived threshold state of a reading
type AlertState string

const (
	// AlertNormal means no configured bound was breached
	AlertNormal AlertState = "normal"
	// AlertAboveMax means the value exceeded the max threshold
	AlertAboveMax AlertState = "above_max"
	// AlertBelowMin means the value fell under the min threshold
	AlertBelowMin AlertState = "below_min"
)

// Evaluation is the alert and staleness result for one latest reading
type Evaluation struct {
	Alert  AlertState `json:"alert"`
	Stale  bool       `json:"stale"`
	NoData bool       `json:"noData"`
}

// LiveRow is one line of the live dashboard
type LiveRow struct {
	SensorID      string     `json:"sensorId"`
	SensorName    string     `json:"sensorName,omitempty"`
	Metric        string     `json:"metric,omitempty"`
	Value         *float64   `json:"value,omitempty"`
	Timestamp     *time.Time `json:"timestamp,omitempty"`
	Display       string     `json:"display,omitempty"`
	Min           *float64   `json:"min,omitempty"`
	Max           *float64   `json:"max,omitempty"`
	Misconfigured bool       `json:"misconfigured,omitempty"`
	Evaluation
}

// LiveView is the snapshot served to the dashboard home page
type LiveView struct {
	GeneratedAt time.Time `json:"generatedAt"`
	Rows        []LiveRow `json:"rows"`
	ParseErrors int       `json:"parseErrors"`
}

// HistoryQuery carries the raw, caller supplied history filter
type HistoryQuery struct {
	SensorID string
	From     string
	To       string
}

// Role is the session role supplied by the identity collaborator
type Role string

const (
	// RoleSuperAdmin can manage users and devices
	RoleSuperAdmin Role = "super_admin"
	// RoleAdmin can manage devices
	RoleAdmin Role = "admin"
	// RoleUser can only view
	RoleUser Role = "user"
)

// IsValid returns true for the known roles
func (r Role) IsValid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleUser:
		return true
	default:
		return false
	}
}

// CanManageDevices returns true if the role may mutate threshold configuration
func (r Role) CanManageDevices() bool {
	return r == RoleSuperAdmin || r == RoleAdmin
}

// User is a dashboard account as exposed outside the user directory (no password hash)
type User struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
}
