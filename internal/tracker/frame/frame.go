// Package frame implements the binary wire format for motion-sensor
// telemetry datagrams.
//
// Each datagram carries exactly one packed little-endian frame. Two layout
// variants exist on the wire: the full 49-byte frame produced by the
// inertial sensor firmware (with an analog trigger byte) and the 48-byte
// frame produced by the gyro-mouse capture path (no trigger). The final
// byte of either variant is a checksum: the sum of all preceding bytes
// modulo 256. The checksum is a transmission-corruption screen only; it is
// trivially spoofable and must not be treated as a security boundary.
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Frame layout constants. These define the fixed byte format shared with
// the sensor-side firmware and capture tools and must not change.
const (
	FRAME_SIZE_TRIGGER  = 49 // inertial sensor variant, includes analog trigger byte
	FRAME_SIZE_STANDARD = 48 // gyro-mouse variant, no trigger byte

	DEVICE_ID_OFFSET    = 0  // uint8 logical device selector
	SEQUENCE_OFFSET     = 1  // uint32 monotonic packet counter
	QUATERNION_OFFSET   = 5  // 4 x float32 (w, x, y, z)
	CHANNEL_A_OFFSET    = 21 // 3 x float32, acceleration or absolute position per device class
	ANGULAR_RATE_OFFSET = 33 // 3 x float32 angular velocity (rad/s)
	BUTTONS_OFFSET      = 45 // uint16 button bitmask
	TRIGGER_OFFSET      = 47 // uint8 analog trigger (49-byte variant only)
)

// Button bitmask layout. The bit assignment is fixed by the firmware.
const (
	ButtonPrimary uint16 = 1 << 0 // trigger click
	ButtonGrip    uint16 = 1 << 1
	ButtonMenu    uint16 = 1 << 2
	ButtonSystem  uint16 = 1 << 3
)

// Well-known device identifiers used by the observed deployments.
const (
	DeviceLeftController  uint8 = 0
	DeviceRightController uint8 = 1
	DeviceHeadset         uint8 = 2
)

var (
	// ErrSizeMismatch is returned when a datagram's length matches neither
	// frame variant. Such datagrams are rejected without inspection.
	ErrSizeMismatch = errors.New("frame size mismatch")

	// ErrChecksum is returned when the trailing checksum byte does not match
	// the byte sum of the frame body.
	ErrChecksum = errors.New("frame checksum mismatch")
)

// SensorFrame is one decoded telemetry sample from a sensor.
type SensorFrame struct {
	DeviceID uint8
	Sequence uint32

	// Orientation quaternion (w, x, y, z), absolute, sensor-reported.
	QuatW, QuatX, QuatY, QuatZ float32

	// ChannelA is semantically overloaded on the wire: linear acceleration
	// for inertial devices, absolute position for hub-tracked devices. The
	// meaning is fixed per device class at registration, never inferred
	// from packet contents.
	ChannelA [3]float32

	// AngularRate is angular velocity in rad/s, applied verbatim.
	AngularRate [3]float32

	Buttons uint16

	// Trigger is the 0-255 analog value. Only meaningful when HasTrigger
	// is set (49-byte variant).
	Trigger    uint8
	HasTrigger bool
}

// Checksum computes the wire checksum over b: the byte sum modulo 256.
func Checksum(b []byte) uint8 {
	var sum uint8
	for _, v := range b {
		sum += v
	}
	return sum
}

// VerifyChecksum reports whether the final byte of an encoded frame matches
// the byte sum of everything before it. Returns false for empty input.
func VerifyChecksum(b []byte) bool {
	if len(b) < 2 {
		return false
	}
	return Checksum(b[:len(b)-1]) == b[len(b)-1]
}

// Decode parses one encoded frame. It fails with ErrSizeMismatch unless the
// input length is exactly one of the two variant sizes, and with
// ErrChecksum if the trailing checksum does not verify. Field extraction
// follows the fixed little-endian layout.
func Decode(b []byte) (SensorFrame, error) {
	var f SensorFrame

	switch len(b) {
	case FRAME_SIZE_TRIGGER:
		f.HasTrigger = true
	case FRAME_SIZE_STANDARD:
	default:
		return SensorFrame{}, fmt.Errorf("%w: got %d bytes, want %d or %d",
			ErrSizeMismatch, len(b), FRAME_SIZE_TRIGGER, FRAME_SIZE_STANDARD)
	}

	if !VerifyChecksum(b) {
		return SensorFrame{}, ErrChecksum
	}

	f.DeviceID = b[DEVICE_ID_OFFSET]
	f.Sequence = binary.LittleEndian.Uint32(b[SEQUENCE_OFFSET:])

	f.QuatW = float32At(b, QUATERNION_OFFSET)
	f.QuatX = float32At(b, QUATERNION_OFFSET+4)
	f.QuatY = float32At(b, QUATERNION_OFFSET+8)
	f.QuatZ = float32At(b, QUATERNION_OFFSET+12)

	for i := 0; i < 3; i++ {
		f.ChannelA[i] = float32At(b, CHANNEL_A_OFFSET+4*i)
		f.AngularRate[i] = float32At(b, ANGULAR_RATE_OFFSET+4*i)
	}

	f.Buttons = binary.LittleEndian.Uint16(b[BUTTONS_OFFSET:])
	if f.HasTrigger {
		f.Trigger = b[TRIGGER_OFFSET]
	}

	return f, nil
}

// Encode serialises a frame into its wire representation, computing the
// checksum over the assembled buffer before appending it. Frames with
// HasTrigger unset produce the 48-byte layout.
func Encode(f SensorFrame) []byte {
	size := FRAME_SIZE_STANDARD
	if f.HasTrigger {
		size = FRAME_SIZE_TRIGGER
	}
	b := make([]byte, size)

	b[DEVICE_ID_OFFSET] = f.DeviceID
	binary.LittleEndian.PutUint32(b[SEQUENCE_OFFSET:], f.Sequence)

	putFloat32(b, QUATERNION_OFFSET, f.QuatW)
	putFloat32(b, QUATERNION_OFFSET+4, f.QuatX)
	putFloat32(b, QUATERNION_OFFSET+8, f.QuatY)
	putFloat32(b, QUATERNION_OFFSET+12, f.QuatZ)

	for i := 0; i < 3; i++ {
		putFloat32(b, CHANNEL_A_OFFSET+4*i, f.ChannelA[i])
		putFloat32(b, ANGULAR_RATE_OFFSET+4*i, f.AngularRate[i])
	}

	binary.LittleEndian.PutUint16(b[BUTTONS_OFFSET:], f.Buttons)
	if f.HasTrigger {
		b[TRIGGER_OFFSET] = f.Trigger
	}

	b[size-1] = Checksum(b[:size-1])
	return b
}

func float32At(b []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b[off:]))
}

func putFloat32(b []byte, off int, v float32) {
	binary.LittleEndian.PutUint32(b[off:], math.Float32bits(v))
}
