package device

import "time"

// Thermostat is the typed view of one Inspire thermostat, built by the
// coordinator from the vendor's device list and information calls.
type Thermostat struct {
	// Identity
	ID    string `json:"id"`
	Name  string `json:"name"`
	Model string `json:"model,omitempty"`
	Type  string `json:"type,omitempty"`

	// Temperatures, in °C. Pointers distinguish "not reported" from zero.
	CurrentTemperature *float64 `json:"current_temperature,omitempty"`
	TargetTemperature  *float64 `json:"target_temperature,omitempty"`
	OnTemperature      *float64 `json:"on_temperature,omitempty"`
	ProfileTemperature *float64 `json:"profile_temperature,omitempty"`

	// Mode is the canonical function name: off, program1, program2,
	// both, manual or boost.
	Mode string `json:"mode"`

	// BoilerOn reports whether the thermostat is calling for heat.
	BoilerOn *bool `json:"boiler_on,omitempty"`

	// Battery is the vendor's battery report: "OK", "Low" or a voltage
	// string. Not a percentage.
	Battery string `json:"battery,omitempty"`

	// Connected reports whether the device was reachable through its
	// gateway at the last refresh.
	Connected bool `json:"connected"`

	// Attributes holds every vendor attribute verbatim, including the
	// ones lifted into typed fields above.
	Attributes map[string]string `json:"attributes,omitempty"`

	// UpdatedAt is when this view was built.
	UpdatedAt time.Time `json:"updated_at"`
}

// DeepCopy creates an independent copy of the Thermostat.
func (t *Thermostat) DeepCopy() *Thermostat {
	if t == nil {
		return nil
	}

	cpy := *t

	cpy.CurrentTemperature = copyFloat(t.CurrentTemperature)
	cpy.TargetTemperature = copyFloat(t.TargetTemperature)
	cpy.OnTemperature = copyFloat(t.OnTemperature)
	cpy.ProfileTemperature = copyFloat(t.ProfileTemperature)

	if t.BoilerOn != nil {
		b := *t.BoilerOn
		cpy.BoilerOn = &b
	}

	if t.Attributes != nil {
		cpy.Attributes = make(map[string]string, len(t.Attributes))
		for k, v := range t.Attributes {
			cpy.Attributes[k] = v
		}
	}

	return &cpy
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

// Snapshot is an immutable view of the whole account at one point in
// time. The coordinator replaces the snapshot wholesale on every
// successful refresh; consumers never mutate one in place.
type Snapshot struct {
	// Thermostats in vendor list order.
	Thermostats []Thermostat `json:"thermostats"`

	// Summary is the flattened account summary (connected gateways,
	// connected units, ...). May be empty.
	Summary map[string]string `json:"summary,omitempty"`

	// Available is false once consecutive refresh failures pass the
	// configured threshold. The thermostat data is then stale.
	Available bool `json:"available"`

	// UpdatedAt is when the data was last successfully refreshed.
	UpdatedAt time.Time `json:"updated_at"`
}

// Find returns the thermostat with the given id, or nil.
func (s *Snapshot) Find(id string) *Thermostat {
	if s == nil {
		return nil
	}
	for i := range s.Thermostats {
		if s.Thermostats[i].ID == id {
			return &s.Thermostats[i]
		}
	}
	return nil
}

// Clone creates an independent copy of the Snapshot.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}

	cpy := Snapshot{
		Available: s.Available,
		UpdatedAt: s.UpdatedAt,
	}

	if s.Thermostats != nil {
		cpy.Thermostats = make([]Thermostat, len(s.Thermostats))
		for i := range s.Thermostats {
			cpy.Thermostats[i] = *s.Thermostats[i].DeepCopy()
		}
	}

	if s.Summary != nil {
		cpy.Summary = make(map[string]string, len(s.Summary))
		for k, v := range s.Summary {
			cpy.Summary[k] = v
		}
	}

	return &cpy
}
