package sensors

import (
	"fmt"

	"gobot.io/x/gobot/v2/drivers/i2c"
	"gobot.io/x/gobot/v2/platforms/raspi"
)

// SHT2xProbe reads temperature and humidity from an SHT2x sensor over I2C.
type SHT2xProbe struct {
	driver *i2c.SHT2xDriver
}

func NewSHT2xProbe() (*SHT2xProbe, error) {
	adaptor := raspi.NewAdaptor()
	if err := adaptor.Connect(); err != nil {
		return nil, fmt.Errorf("raspi adaptor connect: %w", err)
	}
	driver := i2c.NewSHT2xDriver(adaptor)
	if err := driver.Start(); err != nil {
		return nil, fmt.Errorf("sht2x driver start: %w", err)
	}
	return &SHT2xProbe{driver: driver}, nil
}

func (p *SHT2xProbe) Probe() (float64, float64, error) {
	temperature, err := p.driver.Temperature()
	if err != nil {
		return 0, 0, fmt.Errorf("sht2x temperature: %w", err)
	}
	humidity, err := p.driver.Humidity()
	if err != nil {
		return 0, 0, fmt.Errorf("sht2x humidity: %w", err)
	}
	return float64(temperature), float64(humidity), nil
}
