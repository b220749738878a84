package sampler

// Distance sensor range types as stored under ds_type in CONFIG.TXT.
const (
	RangeType0 = 0 // 10mm per ADC unit
	RangeType1 = 1 // 5mm per ADC unit
)

// RangeMultiplier returns the mm-per-unit multiplier for a ds_type value.
// Any non-zero type selects the 5mm multiplier.
func RangeMultiplier(dsType int) int {
	if dsType != RangeType0 {
		return 5
	}
	return 10
}

// Scale converts a raw median into the record's distance unit.
func Scale(raw uint16, multiplier int) int {
	return int(raw) * multiplier
}

// ADCToVoltage converts an ADC reading to volts at the converter's input.
func ADCToVoltage(raw uint16, vref float32, fullScale float32) float32 {
	if fullScale == 0 {
		return 0
	}
	return float32(raw) * vref / fullScale
}

// VoltageDivider returns the voltage before a divider that scales its input
// down by ratio (2 for the battery's 1:1 resistor pair).
func VoltageDivider(vout float32, ratio float32) float32 {
	return vout * ratio
}

// BatteryVolts implements raw × ratio × vref / fullScale.
func BatteryVolts(raw uint16, ratio, vref, fullScale float32) float32 {
	return VoltageDivider(ADCToVoltage(raw, vref, fullScale), ratio)
}
