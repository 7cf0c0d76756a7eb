package device

import (
	"testing"
	"time"
)

func TestThermostatDeepCopy(t *testing.T) {
	original := sampleThermostat("1234", "Hallway")
	cpy := original.DeepCopy()

	if cpy == original {
		t.Fatal("DeepCopy() returned the same pointer")
	}
	if cpy.ID != original.ID || cpy.Name != original.Name {
		t.Errorf("DeepCopy() = %+v, want copy of %+v", cpy, original)
	}

	// Mutating the copy must not leak into the original.
	*cpy.CurrentTemperature = 5.0
	*cpy.BoilerOn = false
	cpy.Attributes["Current_Temperature"] = "5.0"

	if *original.CurrentTemperature != 19.5 {
		t.Errorf("original CurrentTemperature mutated: %v", *original.CurrentTemperature)
	}
	if !*original.BoilerOn {
		t.Error("original BoilerOn mutated")
	}
	if original.Attributes["Current_Temperature"] != "19.5" {
		t.Errorf("original Attributes mutated: %q", original.Attributes["Current_Temperature"])
	}
}

func TestThermostatDeepCopyNil(t *testing.T) {
	var therm *Thermostat
	if therm.DeepCopy() != nil {
		t.Error("DeepCopy() of nil should be nil")
	}
}

func TestSnapshotFind(t *testing.T) {
	snap := &Snapshot{
		Thermostats: []Thermostat{
			*sampleThermostat("1234", "Hallway"),
			*sampleThermostat("5678", "Bedroom"),
		},
		Available: true,
		UpdatedAt: time.Now(),
	}

	if got := snap.Find("5678"); got == nil || got.Name != "Bedroom" {
		t.Errorf("Find(5678) = %+v, want Bedroom", got)
	}
	if got := snap.Find("0000"); got != nil {
		t.Errorf("Find(0000) = %+v, want nil", got)
	}

	var nilSnap *Snapshot
	if nilSnap.Find("1234") != nil {
		t.Error("Find() on nil snapshot should be nil")
	}
}

func TestSnapshotClone(t *testing.T) {
	snap := &Snapshot{
		Thermostats: []Thermostat{*sampleThermostat("1234", "Hallway")},
		Summary:     map[string]string{"Connected_Units": "1"},
		Available:   true,
		UpdatedAt:   time.Now(),
	}

	cpy := snap.Clone()
	if cpy == snap {
		t.Fatal("Clone() returned the same pointer")
	}

	*cpy.Thermostats[0].TargetTemperature = 30.0
	cpy.Summary["Connected_Units"] = "0"
	cpy.Available = false

	if *snap.Thermostats[0].TargetTemperature != 21.0 {
		t.Errorf("original thermostat mutated: %v", *snap.Thermostats[0].TargetTemperature)
	}
	if snap.Summary["Connected_Units"] != "1" {
		t.Errorf("original summary mutated: %q", snap.Summary["Connected_Units"])
	}
	if !snap.Available {
		t.Error("original Available mutated")
	}
}

func TestSnapshotCloneNil(t *testing.T) {
	var snap *Snapshot
	if snap.Clone() != nil {
		t.Error("Clone() of nil should be nil")
	}
}
