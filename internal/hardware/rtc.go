package hardware

import (
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/i2c"
)

// DS1307 register layout.
const (
	DS1307Address = 0x68

	regSeconds   = 0x00
	timeRegCount = 7

	clockHalt  = 0x80 // seconds register, bit 7
	hour12Mode = 0x40 // hours register, bit 6
	hourPM     = 0x20 // hours register, bit 5 in 12-hour mode
)

// DS1307 is a battery-backed real-time clock on an I²C bus. The chip
// stores local wall-clock time, interpreted in loc.
type DS1307 struct {
	mu  sync.Mutex
	dev *i2c.Dev
	loc *time.Location
}

// NewDS1307 returns a driver for the chip at addr on bus.
func NewDS1307(bus i2c.Bus, addr uint16, loc *time.Location) *DS1307 {
	if addr == 0 {
		addr = DS1307Address
	}
	if loc == nil {
		loc = time.Local
	}
	return &DS1307{dev: &i2c.Dev{Bus: bus, Addr: addr}, loc: loc}
}

// CurrentTime reads the date and time registers.
//
// Returns:
//   - time.Time: the chip's time in the configured location
//   - error: ErrRTC on bus failure, ErrRTCHalted if the oscillator is stopped
func (d *DS1307) CurrentTime() (time.Time, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	regs := make([]byte, timeRegCount)
	if err := d.dev.Tx([]byte{regSeconds}, regs); err != nil {
		return time.Time{}, fmt.Errorf("%w: reading time registers: %w", ErrRTC, err)
	}
	if regs[0]&clockHalt != 0 {
		return time.Time{}, ErrRTCHalted
	}
	return decodeTime(regs, d.loc)
}

// SetTime writes t into the chip and starts the oscillator.
func (d *DS1307) SetTime(t time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	w := append([]byte{regSeconds}, encodeTime(t.In(d.loc))...)
	if err := d.dev.Tx(w, nil); err != nil {
		return fmt.Errorf("%w: writing time registers: %w", ErrRTC, err)
	}
	return nil
}

func decodeTime(regs []byte, loc *time.Location) (time.Time, error) {
	sec := fromBCD(regs[0] & 0x7F)
	minute := fromBCD(regs[1] & 0x7F)

	var hour int
	if regs[2]&hour12Mode != 0 {
		hour = fromBCD(regs[2]&0x1F) % 12
		if regs[2]&hourPM != 0 {
			hour += 12
		}
	} else {
		hour = fromBCD(regs[2] & 0x3F)
	}

	day := fromBCD(regs[4] & 0x3F)
	month := fromBCD(regs[5] & 0x1F)
	year := 2000 + fromBCD(regs[6])

	if sec > 59 || minute > 59 || hour > 23 || day < 1 || day > 31 || month < 1 || month > 12 {
		return time.Time{}, fmt.Errorf("%w: invalid register contents % x", ErrRTC, regs)
	}
	return time.Date(year, time.Month(month), day, hour, minute, sec, 0, loc), nil
}

// encodeTime returns the seven time registers in 24-hour mode with the
// clock-halt bit cleared. The day-of-week register counts 1 (Sunday) to 7.
func encodeTime(t time.Time) []byte {
	return []byte{
		toBCD(t.Second()),
		toBCD(t.Minute()),
		toBCD(t.Hour()),
		byte(t.Weekday()) + 1,
		toBCD(t.Day()),
		toBCD(int(t.Month())),
		toBCD(t.Year() % 100),
	}
}

func fromBCD(b byte) int {
	return int(b>>4)*10 + int(b&0x0F)
}

func toBCD(v int) byte {
	return byte(v/10)<<4 | byte(v%10)
}

// SystemClock reads wall-clock time from the operating system.
type SystemClock struct {
	Location *time.Location
}

// CurrentTime returns the system time in the configured location.
func (c SystemClock) CurrentTime() (time.Time, error) {
	loc := c.Location
	if loc == nil {
		loc = time.Local
	}
	return time.Now().In(loc), nil
}
