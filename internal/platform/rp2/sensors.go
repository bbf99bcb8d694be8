//go:build rp2040 || rp2350

package rp2

import (
	"context"
	"machine"

	"tinygo.org/x/drivers/bh1750"
	"tinygo.org/x/drivers/sht3x"

	"devicelights-go/errcode"
	"devicelights-go/services/config"
	"devicelights-go/services/sensors"
)

// OpenI2C configures I2C0 on the sensor pins.
func OpenI2C(cfg config.Sensors) (*machine.I2C, error) {
	if !inRange(cfg.SDA) || !inRange(cfg.SCL) {
		return nil, &errcode.E{C: errcode.UnknownPin, Op: "rp2.OpenI2C"}
	}
	sda, scl := machine.Pin(cfg.SDA), machine.Pin(cfg.SCL)
	sda.Configure(machine.PinConfig{Mode: machine.PinI2C})
	scl.Configure(machine.PinConfig{Mode: machine.PinI2C})
	bus := machine.I2C0
	if err := bus.Configure(machine.I2CConfig{
		SDA:       sda,
		SCL:       scl,
		Frequency: 100_000,
	}); err != nil {
		return nil, errcode.Wrap(errcode.Error, "rp2.OpenI2C", err)
	}
	return bus, nil
}

// Climate reads an SHT31 at its default address.
func Climate(bus *machine.I2C) sensors.Sensor {
	dev := sht3x.New(bus)
	return sensors.SensorFunc(func(ctx context.Context) ([]sensors.Reading, error) {
		milliC, centiRH, err := dev.ReadTemperatureHumidity()
		if err != nil {
			return nil, err
		}
		return sensors.Climate(float64(milliC)/1000, float64(centiRH)/100), nil
	})
}

// Light reads a BH1750 in continuous high-resolution mode.
func Light(bus *machine.I2C) sensors.Sensor {
	dev := bh1750.New(bus)
	dev.Configure()
	return sensors.SensorFunc(func(ctx context.Context) ([]sensors.Reading, error) {
		return sensors.Light(float64(dev.Illuminance()) / 1000), nil
	})
}
