package actuator

import (
	"fmt"
	"sync"

	"gobot.io/x/gobot/v2/drivers/gpio"
	"gobot.io/x/gobot/v2/platforms/raspi"
)

// GPIORelay drives a relay board pin through gobot. State is tracked here
// rather than read back from the pin; the relay is the only writer.
type GPIORelay struct {
	mu     sync.Mutex
	driver *gpio.RelayDriver
	state  State
}

// NewGPIORelay connects the Raspberry Pi adaptor and starts a relay driver
// on the given pin.
func NewGPIORelay(pin string) (*GPIORelay, error) {
	adaptor := raspi.NewAdaptor()
	if err := adaptor.Connect(); err != nil {
		return nil, fmt.Errorf("raspi adaptor connect: %w", err)
	}
	driver := gpio.NewRelayDriver(adaptor, pin)
	if err := driver.Start(); err != nil {
		return nil, fmt.Errorf("relay driver start: %w", err)
	}
	r := &GPIORelay{driver: driver, state: StateOff}
	if err := r.Off(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *GPIORelay) On() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.driver.On(); err != nil {
		return fmt.Errorf("relay on: %w", err)
	}
	r.state = StateOn
	return nil
}

func (r *GPIORelay) Off() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.driver.Off(); err != nil {
		return fmt.Errorf("relay off: %w", err)
	}
	r.state = StateOff
	return nil
}

func (r *GPIORelay) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}
