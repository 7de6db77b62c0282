package sensors

import (
	"fmt"

	"gobot.io/x/gobot/v2/drivers/spi"
	"gobot.io/x/gobot/v2/platforms/raspi"
)

// NewMCP3008 connects a Raspberry Pi adaptor and starts the MCP3008 ADC
// driver shared by the analog probe channels.
func NewMCP3008() (*spi.MCP3008Driver, error) {
	adaptor := raspi.NewAdaptor()
	if err := adaptor.Connect(); err != nil {
		return nil, fmt.Errorf("raspi adaptor connect: %w", err)
	}
	driver := spi.NewMCP3008Driver(adaptor)
	if err := driver.Start(); err != nil {
		return nil, fmt.Errorf("mcp3008 driver start: %w", err)
	}
	return driver, nil
}

// ADCChannel exposes one MCP3008 channel as an AnalogReader. The 10-bit
// samples are scaled to the 16-bit calibration range.
type ADCChannel struct {
	driver  *spi.MCP3008Driver
	channel int
}

func NewADCChannel(driver *spi.MCP3008Driver, channel int) *ADCChannel {
	return &ADCChannel{driver: driver, channel: channel}
}

func (c *ADCChannel) ReadRaw() (int, error) {
	v, err := c.driver.Read(c.channel)
	if err != nil {
		return 0, fmt.Errorf("mcp3008 read channel %d: %w", c.channel, err)
	}
	return v * 65535 / 1023, nil
}
