package sensibohkbridge

import (
	"github.com/brutella/hap/characteristic"
	"github.com/brutella/hap/service"
)

type heaterCoolerSvc struct {
	*service.S

	Active                      *characteristic.Active
	CurrentHeaterCoolerState    *characteristic.CurrentHeaterCoolerState
	TargetHeaterCoolerState     *characteristic.TargetHeaterCoolerState
	CurrentTemperature          *characteristic.CurrentTemperature
	TemperatureDisplayUnits     *characteristic.TemperatureDisplayUnits
	CurrentRelativeHumidity     *characteristic.CurrentRelativeHumidity
	CoolingThresholdTemperature *characteristic.CoolingThresholdTemperature // nil if no cool range
	HeatingThresholdTemperature *characteristic.HeatingThresholdTemperature // nil if no heat range
	SwingMode                   *characteristic.SwingMode                   // nil without vertical swing
	RotationSpeed               *characteristic.RotationSpeed               // nil without fan levels
}

func newHeaterCoolerSvc() *heaterCoolerSvc {
	s := heaterCoolerSvc{}
	s.S = service.New(service.TypeHeaterCooler)

	s.Active = characteristic.NewActive()
	s.AddC(s.Active.C)

	s.CurrentHeaterCoolerState = characteristic.NewCurrentHeaterCoolerState()
	s.AddC(s.CurrentHeaterCoolerState.C)

	s.TargetHeaterCoolerState = characteristic.NewTargetHeaterCoolerState()
	s.AddC(s.TargetHeaterCoolerState.C)

	s.CurrentTemperature = characteristic.NewCurrentTemperature()
	s.CurrentTemperature.SetMinValue(-100)
	s.CurrentTemperature.SetMaxValue(100)
	s.CurrentTemperature.SetStepValue(0.1)
	s.AddC(s.CurrentTemperature.C)

	s.TemperatureDisplayUnits = characteristic.NewTemperatureDisplayUnits()
	s.AddC(s.TemperatureDisplayUnits.C)

	s.CurrentRelativeHumidity = characteristic.NewCurrentRelativeHumidity()
	s.AddC(s.CurrentRelativeHumidity.C)

	return &s
}

type fanSvc struct {
	*service.S

	Active        *characteristic.Active
	SwingMode     *characteristic.SwingMode
	RotationSpeed *characteristic.RotationSpeed
}

func newFanSvc(name string) *fanSvc {
	s := fanSvc{}
	s.S = service.New(service.TypeFanV2)

	n := characteristic.NewName()
	n.SetValue(name)
	s.AddC(n.C)

	s.Active = characteristic.NewActive()
	s.AddC(s.Active.C)

	return &s
}

type drySvc struct {
	*service.S

	Active                             *characteristic.Active
	CurrentHumidifierDehumidifierState *characteristic.CurrentHumidifierDehumidifierState
	TargetHumidifierDehumidifierState  *characteristic.TargetHumidifierDehumidifierState
	CurrentRelativeHumidity            *characteristic.CurrentRelativeHumidity
	SwingMode                          *characteristic.SwingMode
	RotationSpeed                      *characteristic.RotationSpeed
}

func newDrySvc(name string) *drySvc {
	s := drySvc{}
	s.S = service.New(service.TypeHumidifierDehumidifier)

	n := characteristic.NewName()
	n.SetValue(name)
	s.AddC(n.C)

	s.Active = characteristic.NewActive()
	s.AddC(s.Active.C)

	s.CurrentHumidifierDehumidifierState = characteristic.NewCurrentHumidifierDehumidifierState()
	s.AddC(s.CurrentHumidifierDehumidifierState.C)

	// dehumidifier is the only thing dry mode can be
	s.TargetHumidifierDehumidifierState = characteristic.NewTargetHumidifierDehumidifierState()
	s.TargetHumidifierDehumidifierState.ValidVals = []int{characteristic.TargetHumidifierDehumidifierStateDehumidifier}
	s.TargetHumidifierDehumidifierState.SetValue(characteristic.TargetHumidifierDehumidifierStateDehumidifier)
	s.AddC(s.TargetHumidifierDehumidifierState.C)

	s.CurrentRelativeHumidity = characteristic.NewCurrentRelativeHumidity()
	s.AddC(s.CurrentRelativeHumidity.C)

	return &s
}

type switchSvc struct {
	*service.S

	On *characteristic.On
}

func newSwitchSvc(name string) *switchSvc {
	s := switchSvc{}
	s.S = service.New(service.TypeSwitch)

	n := characteristic.NewName()
	n.SetValue(name)
	s.AddC(n.C)

	s.On = characteristic.NewOn()
	s.AddC(s.On.C)

	return &s
}

type filterSvc struct {
	*service.S

	FilterChangeIndication *characteristic.FilterChangeIndication
	FilterLifeLevel        *characteristic.FilterLifeLevel
	ResetFilterIndication  *characteristic.ResetFilterIndication
}

func newFilterSvc() *filterSvc {
	s := filterSvc{}
	s.S = service.New(service.TypeFilterMaintenance)

	s.FilterChangeIndication = characteristic.NewFilterChangeIndication()
	s.AddC(s.FilterChangeIndication.C)

	s.FilterLifeLevel = characteristic.NewFilterLifeLevel()
	s.AddC(s.FilterLifeLevel.C)

	s.ResetFilterIndication = characteristic.NewResetFilterIndication()
	s.AddC(s.ResetFilterIndication.C)

	return &s
}

type purifierSvc struct {
	*service.S

	Active                  *characteristic.Active
	CurrentAirPurifierState *characteristic.CurrentAirPurifierState
	TargetAirPurifierState  *characteristic.TargetAirPurifierState
	RotationSpeed           *characteristic.RotationSpeed
}

func newPurifierSvc() *purifierSvc {
	s := purifierSvc{}
	s.S = service.New(service.TypeAirPurifier)

	s.Active = characteristic.NewActive()
	s.AddC(s.Active.C)

	s.CurrentAirPurifierState = characteristic.NewCurrentAirPurifierState()
	s.AddC(s.CurrentAirPurifierState.C)

	s.TargetAirPurifierState = characteristic.NewTargetAirPurifierState()
	s.AddC(s.TargetAirPurifierState.C)

	s.RotationSpeed = characteristic.NewRotationSpeed()
	s.AddC(s.RotationSpeed.C)

	return &s
}

type airQualitySvc struct {
	*service.S

	AirQuality *characteristic.AirQuality
	VOCDensity *characteristic.VOCDensity
}

func newAirQualitySvc() *airQualitySvc {
	s := airQualitySvc{}
	s.S = service.New(service.TypeAirQualitySensor)

	s.AirQuality = characteristic.NewAirQuality()
	s.AddC(s.AirQuality.C)

	s.VOCDensity = characteristic.NewVOCDensity()
	s.VOCDensity.SetMaxValue(10000)
	s.AddC(s.VOCDensity.C)

	return &s
}

type carbonDioxideSvc struct {
	*service.S

	CarbonDioxideDetected *characteristic.CarbonDioxideDetected
	CarbonDioxideLevel    *characteristic.CarbonDioxideLevel
}

func newCarbonDioxideSvc() *carbonDioxideSvc {
	s := carbonDioxideSvc{}
	s.S = service.New(service.TypeCarbonDioxideSensor)

	s.CarbonDioxideDetected = characteristic.NewCarbonDioxideDetected()
	s.AddC(s.CarbonDioxideDetected.C)

	s.CarbonDioxideLevel = characteristic.NewCarbonDioxideLevel()
	s.AddC(s.CarbonDioxideLevel.C)

	return &s
}

type motionSvc struct {
	*service.S

	MotionDetected   *characteristic.MotionDetected
	StatusLowBattery *characteristic.StatusLowBattery
}

func newMotionSvc() *motionSvc {
	s := motionSvc{}
	s.S = service.New(service.TypeMotionSensor)

	s.MotionDetected = characteristic.NewMotionDetected()
	s.AddC(s.MotionDetected.C)

	s.StatusLowBattery = characteristic.NewStatusLowBattery()
	s.AddC(s.StatusLowBattery.C)

	return &s
}

type temperatureSvc struct {
	*service.S

	CurrentTemperature *characteristic.CurrentTemperature
	StatusLowBattery   *characteristic.StatusLowBattery
}

func newTemperatureSvc() *temperatureSvc {
	s := temperatureSvc{}
	s.S = service.New(service.TypeTemperatureSensor)

	s.CurrentTemperature = characteristic.NewCurrentTemperature()
	s.CurrentTemperature.SetMinValue(-100)
	s.CurrentTemperature.SetMaxValue(100)
	s.CurrentTemperature.SetStepValue(0.1)
	s.AddC(s.CurrentTemperature.C)

	s.StatusLowBattery = characteristic.NewStatusLowBattery()
	s.AddC(s.StatusLowBattery.C)

	return &s
}

type humiditySvc struct {
	*service.S

	CurrentRelativeHumidity *characteristic.CurrentRelativeHumidity
}

func newHumiditySvc() *humiditySvc {
	s := humiditySvc{}
	s.S = service.New(service.TypeHumiditySensor)

	s.CurrentRelativeHumidity = characteristic.NewCurrentRelativeHumidity()
	s.AddC(s.CurrentRelativeHumidity.C)

	return &s
}

type occupancySvc struct {
	*service.S

	OccupancyDetected *characteristic.OccupancyDetected
}

func newOccupancySvc() *occupancySvc {
	s := occupancySvc{}
	s.S = service.New(service.TypeOccupancySensor)

	s.OccupancyDetected = characteristic.NewOccupancyDetected()
	s.AddC(s.OccupancyDetected.C)

	return &s
}
