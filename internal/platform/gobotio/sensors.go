package gobotio

import (
	"context"

	"gobot.io/x/gobot/drivers/i2c"

	"devicelights-go/errcode"
	"devicelights-go/services/sensors"
)

// Climate starts a gobot SHT3x driver on the adaptor's default I2C bus.
func Climate(conn i2c.Connector) (sensors.Sensor, error) {
	d := i2c.NewSHT3xDriver(conn)
	if err := d.Start(); err != nil {
		return nil, errcode.Wrap(errcode.Error, "gobotio.Climate", err)
	}
	return sensors.SensorFunc(func(ctx context.Context) ([]sensors.Reading, error) {
		temp, rh, err := d.Sample()
		if err != nil {
			return nil, err
		}
		return sensors.Climate(float64(temp), float64(rh)), nil
	}), nil
}

// Light starts a gobot BH1750 driver on the adaptor's default I2C bus.
func Light(conn i2c.Connector) (sensors.Sensor, error) {
	d := i2c.NewBH1750Driver(conn)
	if err := d.Start(); err != nil {
		return nil, errcode.Wrap(errcode.Error, "gobotio.Light", err)
	}
	return sensors.SensorFunc(func(ctx context.Context) ([]sensors.Reading, error) {
		lux, err := d.Lux()
		if err != nil {
			return nil, err
		}
		return sensors.Light(float64(lux)), nil
	}), nil
}
