package toonapi

// Burner states reported in ThermostatInfo.BurnerInfo.
const (
	BurnerOff        = "0"
	BurnerHeating    = "1"
	BurnerTapWater   = "2"
	BurnerPreHeating = "3"
)

// Program states reported in ThermostatInfo.ActiveState.
const (
	ActiveStateNone    = -1
	ActiveStateComfort = 0
	ActiveStateHome    = 1
	ActiveStateSleep   = 2
	ActiveStateAway    = 3
	ActiveStateHoliday = 4
)

// Agreement identifies one Toon display linked to the account.
type Agreement struct {
	AgreementID            string `json:"agreementId"`
	DisplayCommonName      string `json:"displayCommonName"`
	DisplayHardwareVersion string `json:"displayHardwareVersion"`
	DisplaySoftwareVersion string `json:"displaySoftwareVersion"`
	HeatingType            string `json:"heatingType"`
	Street                 string `json:"street"`
	HouseNumber            string `json:"houseNumber"`
	PostalCode             string `json:"postalCode"`
	City                   string `json:"city"`
}

// State is one full status snapshot as returned by the status endpoint.
// Sections the display did not report are nil.
type State struct {
	Agreement             Agreement         `json:"-"`
	Thermostat            *ThermostatInfo   `json:"thermostatInfo,omitempty"`
	Power                 *PowerUsage       `json:"powerUsage,omitempty"`
	Gas                   *GasUsage         `json:"gasUsage,omitempty"`
	Devices               *DeviceStatusInfo `json:"deviceStatusInfo,omitempty"`
	LastUpdateFromDisplay int64             `json:"lastUpdateFromDisplay"`
}

// ThermostatInfo carries thermostat readings. Temperatures are in
// hundredths of a degree Celsius.
type ThermostatInfo struct {
	CurrentDisplayTemp     int    `json:"currentDisplayTemp"`
	CurrentSetpoint        int    `json:"currentSetpoint"`
	ActiveState            int    `json:"activeState"`
	ProgramState           int    `json:"programState"`
	CurrentModulationLevel int    `json:"currentModulationLevel"`
	BurnerInfo             string `json:"burnerInfo"`
	NextSetpoint           int    `json:"nextSetpoint"`
	NextTime               int64  `json:"nextTime"`
	HasBoilerFault         int    `json:"hasBoilerFault"`
	ErrorFound             int    `json:"errorFound"`
}

// Temperature returns the displayed room temperature in °C.
func (t ThermostatInfo) Temperature() float64 {
	return float64(t.CurrentDisplayTemp) / 100
}

// Setpoint returns the current setpoint in °C.
func (t ThermostatInfo) Setpoint() float64 {
	return float64(t.CurrentSetpoint) / 100
}

// PowerUsage carries electricity readings (W for Value, Wh for the rest).
type PowerUsage struct {
	Value           float64 `json:"value"`
	DayUsage        float64 `json:"dayUsage"`
	MeterReading    float64 `json:"meterReading"`
	MeterReadingLow float64 `json:"meterReadingLow"`
	IsSmart         int     `json:"isSmart"`
}

// GasUsage carries gas readings (m³ in thousandths for the meter).
type GasUsage struct {
	Value        float64 `json:"value"`
	DayUsage     float64 `json:"dayUsage"`
	MeterReading float64 `json:"meterReading"`
	IsSmart      int     `json:"isSmart"`
}

// DeviceStatusInfo lists the Z-Wave devices (smart plugs) paired with the display.
type DeviceStatusInfo struct {
	Device []DeviceStatus `json:"device"`
}

// DeviceStatus is the state of one smart plug.
type DeviceStatus struct {
	DevUUID      string  `json:"devUUID"`
	DevType      string  `json:"devType"`
	Name         string  `json:"name"`
	CurrentState int     `json:"currentState"`
	CurrentUsage float64 `json:"currentUsage"`
	DayUsage     float64 `json:"dayUsage"`
	IsConnected  int     `json:"isConnected"`
}

// Plug looks up a smart plug by its device UUID.
func (s *State) Plug(devUUID string) (DeviceStatus, bool) {
	if s == nil || s.Devices == nil {
		return DeviceStatus{}, false
	}
	for _, d := range s.Devices.Device {
		if d.DevUUID == devUUID {
			return d, true
		}
	}
	return DeviceStatus{}, false
}

// Plugs returns every smart plug in the snapshot.
func (s *State) Plugs() []DeviceStatus {
	if s == nil || s.Devices == nil {
		return nil
	}
	out := make([]DeviceStatus, len(s.Devices.Device))
	copy(out, s.Devices.Device)
	return out
}
