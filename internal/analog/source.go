package analog

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// Source hands out the latest raw sample of a channel.
type Source interface {
	Sample(ch Channel) uint16
}

// Buffer is a Source fed by a producer calling Set.
type Buffer struct {
	mu      sync.RWMutex
	samples [NumChannels]uint16
}

func NewBuffer() *Buffer {
	return &Buffer{}
}

func (b *Buffer) Set(ch Channel, sample uint16) {
	if ch < 0 || int(ch) >= NumChannels {
		return
	}
	b.mu.Lock()
	b.samples[ch] = sample
	b.mu.Unlock()
}

func (b *Buffer) Sample(ch Channel) uint16 {
	if ch < 0 || int(ch) >= NumChannels {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.samples[ch]
}

// SysfsSource reads Linux IIO raw values, e.g. /sys/bus/iio/devices/iio:device0/in_voltage6_raw.
// Channel maps a logical channel to the IIO index when the wiring differs.
type SysfsSource struct {
	DevicePath string
	Channel    map[Channel]int
}

func NewSysfsSource(devicePath string) *SysfsSource {
	return &SysfsSource{DevicePath: devicePath, Channel: map[Channel]int{}}
}

// Sample returns 0 when the channel cannot be read; the failure is logged.
func (s *SysfsSource) Sample(ch Channel) uint16 {
	v, err := s.ReadRaw(ch)
	if err != nil {
		log.Warn().Err(err).Int("channel", int(ch)).Msg("failed to read analog channel")
		return 0
	}
	return v
}

var readFile = os.ReadFile

func (s *SysfsSource) ReadRaw(ch Channel) (uint16, error) {
	idx := int(ch)
	if mapped, ok := s.Channel[ch]; ok {
		idx = mapped
	}
	file := filepath.Join(s.DevicePath, fmt.Sprintf("in_voltage%d_raw", idx))
	data, err := readFile(file)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", file, err)
	}
	raw, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 16)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", file, err)
	}
	return uint16(raw), nil
}
