package sensibohkbridge

import (
	"github.com/brutella/hap/accessory"
	"github.com/brutella/hap/characteristic"

	"github.com/cloudkucooland/HomeKitBridges/SensiboHKBridge/sensibo"
	"github.com/cloudkucooland/HomeKitBridges/SensiboHKBridge/state"
)

// AirQualitySensor reads the air quality measurements of a Pure or Air Q;
// it shares the record of its unit
type AirQualitySensor struct {
	*generic

	AirQuality    *airQualitySvc    // nil if disabled
	CarbonDioxide *carbonDioxideSvc // Air Q only
}

func NewAirQualitySensor(dev sensibo.Device, ctl *state.Controller, conf *Config) *AirQualitySensor {
	acc := AirQualitySensor{}
	acc.generic = &generic{}

	info := acc.configure("AirQualitySensor", dev.Room.Name+" Air Quality", dev)
	acc.A = accessory.New(info, accessory.TypeSensor)
	acc.finalize(dev.ID)

	if !conf.DisableAirQuality {
		acc.AirQuality = newAirQualitySvc()
		acc.AddS(acc.AirQuality.S)
		observe(acc.AirQuality.AirQuality.C, ctl, state.FieldAirQuality, func(s state.State) interface{} {
			return intOr(s.AirQuality, characteristic.AirQualityUnknown)
		})
	}
	if dev.ProductModel == "airq" && !conf.DisableCarbonDioxide {
		acc.CarbonDioxide = newCarbonDioxideSvc()
		acc.AddS(acc.CarbonDioxide.S)
		observe(acc.CarbonDioxide.CarbonDioxideDetected.C, ctl, state.FieldCarbonDioxideDetected, func(s state.State) interface{} {
			return carbonDioxideDetected(s)
		})
	}

	ctl.OnChange(acc.update)
	acc.update(ctl.Snapshot())

	return &acc
}

func (acc *AirQualitySensor) update(s state.State) {
	if aq := acc.AirQuality; aq != nil {
		if s.AirQuality != nil {
			aq.AirQuality.SetValue(*s.AirQuality)
		}
		if s.VOCDensity != nil {
			aq.VOCDensity.SetValue(*s.VOCDensity)
		}
	}
	if co2 := acc.CarbonDioxide; co2 != nil {
		co2.CarbonDioxideDetected.SetValue(carbonDioxideDetected(s))
		if s.CarbonDioxideLevel != nil {
			co2.CarbonDioxideLevel.SetValue(*s.CarbonDioxideLevel)
		}
	}
}

// RoomSensor is a Sensibo motion sensor paired to a pod; it owns its record
type RoomSensor struct {
	*generic

	Motion      *motionSvc
	Temperature *temperatureSvc
	Humidity    *humiditySvc
}

func NewRoomSensor(sensor sensibo.Sensor, dev sensibo.Device, ctl *state.Controller) *RoomSensor {
	acc := RoomSensor{}
	acc.generic = &generic{}

	host := dev
	host.Serial = sensor.Serial
	host.ProductModel = sensor.ProductModel
	info := acc.configure("RoomSensor", dev.Room.Name+" Sensor", host)
	acc.A = accessory.New(info, accessory.TypeSensor)
	acc.finalize(sensor.ID)

	acc.Motion = newMotionSvc()
	acc.AddS(acc.Motion.S)
	observe(acc.Motion.MotionDetected.C, ctl, state.FieldMotionDetected, func(s state.State) interface{} {
		return isTrue(s.MotionDetected)
	})

	acc.Temperature = newTemperatureSvc()
	acc.AddS(acc.Temperature.S)
	observe(acc.Temperature.CurrentTemperature.C, ctl, state.FieldCurrentTemperature, func(s state.State) interface{} {
		return floatOr(s.CurrentTemperature, 0)
	})

	acc.Humidity = newHumiditySvc()
	acc.AddS(acc.Humidity.S)
	observeHumidity(acc.Humidity, ctl)

	ctl.OnChange(acc.update)
	acc.update(ctl.Snapshot())

	return &acc
}

func observeHumidity(h *humiditySvc, ctl *state.Controller) {
	observe(h.CurrentRelativeHumidity.C, ctl, state.FieldRelativeHumidity, func(s state.State) interface{} {
		return floatOr(s.RelativeHumidity, 0)
	})
}

func (acc *RoomSensor) update(s state.State) {
	acc.Motion.MotionDetected.SetValue(isTrue(s.MotionDetected))
	acc.Motion.StatusLowBattery.SetValue(lowBattery(s))
	acc.Temperature.StatusLowBattery.SetValue(lowBattery(s))
	if s.CurrentTemperature != nil {
		acc.Temperature.CurrentTemperature.SetValue(*s.CurrentTemperature)
	}
	if s.RelativeHumidity != nil {
		acc.Humidity.CurrentRelativeHumidity.SetValue(*s.RelativeHumidity)
	}
}

// HumiditySensor shows the humidity the unit measures as its own
// accessory, for automations HeaterCooler humidity cannot drive
type HumiditySensor struct {
	*generic

	Humidity *humiditySvc
}

func NewHumiditySensor(dev sensibo.Device, ctl *state.Controller) *HumiditySensor {
	acc := HumiditySensor{}
	acc.generic = &generic{}

	info := acc.configure("HumiditySensor", dev.Room.Name+" Humidity", dev)
	acc.A = accessory.New(info, accessory.TypeSensor)
	acc.finalize(dev.ID)

	acc.Humidity = newHumiditySvc()
	acc.AddS(acc.Humidity.S)
	observeHumidity(acc.Humidity, ctl)

	ctl.OnChange(acc.update)
	acc.update(ctl.Snapshot())

	return &acc
}

func (acc *HumiditySensor) update(s state.State) {
	if s.RelativeHumidity != nil {
		acc.Humidity.CurrentRelativeHumidity.SetValue(*s.RelativeHumidity)
	}
}

// OccupancySensor reports whether anyone is home at a location
type OccupancySensor struct {
	*generic

	Occupancy *occupancySvc
}

func NewOccupancySensor(loc sensibo.Location, dev sensibo.Device, ctl *state.Controller) *OccupancySensor {
	acc := OccupancySensor{}
	acc.generic = &generic{}

	host := dev
	host.Serial = loc.ID
	host.ProductModel = "location"
	info := acc.configure("OccupancySensor", loc.Name+" Occupancy", host)
	acc.A = accessory.New(info, accessory.TypeSensor)
	acc.finalize(loc.ID)

	acc.Occupancy = newOccupancySvc()
	acc.AddS(acc.Occupancy.S)
	observe(acc.Occupancy.OccupancyDetected.C, ctl, state.FieldOccupancy, func(s state.State) interface{} {
		return occupancyDetected(s)
	})

	ctl.OnChange(acc.update)
	acc.update(ctl.Snapshot())

	return &acc
}

func (acc *OccupancySensor) update(s state.State) {
	acc.Occupancy.OccupancyDetected.SetValue(occupancyDetected(s))
}
