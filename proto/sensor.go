package proto

import (
	"fmt"
	"strconv"
)

// SensorKind is the wire tag of a sensor value.
type SensorKind uint8

const (
	SensorTemperature SensorKind = iota
	SensorHumidity
	SensorBattery
	SensorStatus
	SensorRaw
)

func (k SensorKind) String() string {
	switch k {
	case SensorTemperature:
		return "temperature"
	case SensorHumidity:
		return "humidity"
	case SensorBattery:
		return "battery"
	case SensorStatus:
		return "status"
	case SensorRaw:
		return "raw"
	}
	return fmt.Sprintf("sensor(%d)", uint8(k))
}

// SensorValue is one of Temperature, Humidity, Battery, Status or Raw.
type SensorValue interface {
	Kind() SensorKind
	String() string
	valueLen() int
	writeValue(w *Writer)
}

// Temperature in degrees Celsius.
type Temperature float32

// Humidity as relative percentage.
type Humidity float32

// Battery charge level, 0–255.
type Battery uint8

// Status is an on/off sensor reading.
type Status bool

// Raw is an uninterpreted 32-bit reading.
type Raw int32

func (Temperature) Kind() SensorKind { return SensorTemperature }
func (Humidity) Kind() SensorKind    { return SensorHumidity }
func (Battery) Kind() SensorKind     { return SensorBattery }
func (Status) Kind() SensorKind      { return SensorStatus }
func (Raw) Kind() SensorKind         { return SensorRaw }

func (v Temperature) String() string { return strconv.FormatFloat(float64(v), 'f', -1, 32) }
func (v Humidity) String() string    { return strconv.FormatFloat(float64(v), 'f', -1, 32) }
func (v Battery) String() string     { return strconv.FormatUint(uint64(v), 10) }
func (v Status) String() string      { return strconv.FormatBool(bool(v)) }
func (v Raw) String() string         { return strconv.FormatInt(int64(v), 10) }

func (Temperature) valueLen() int { return 4 }
func (Humidity) valueLen() int    { return 4 }
func (Battery) valueLen() int     { return 1 }
func (Status) valueLen() int      { return 1 }
func (Raw) valueLen() int         { return 4 }

func (v Temperature) writeValue(w *Writer) { w.WriteFloat32(float32(v)) }
func (v Humidity) writeValue(w *Writer)    { w.WriteFloat32(float32(v)) }
func (v Battery) writeValue(w *Writer)     { w.WriteUint8(uint8(v)) }
func (v Status) writeValue(w *Writer)      { w.WriteBool(bool(v)) }
func (v Raw) writeValue(w *Writer)         { w.WriteInt32(int32(v)) }

func sensorLen(v SensorValue) int {
	return VarintLen(uint64(v.Kind())) + v.valueLen()
}

func writeSensor(w *Writer, v SensorValue) {
	w.WriteVarint(uint64(v.Kind()))
	v.writeValue(w)
}

func readSensor(r *Reader) (SensorValue, error) {
	kind, err := r.ReadVarint()
	if err != nil {
		return nil, err
	}
	if kind > uint64(SensorRaw) {
		return nil, fmt.Errorf("%w: sensor tag %d", ErrInvalidValue, kind)
	}
	switch SensorKind(kind) {
	case SensorTemperature:
		f, err := r.ReadFloat32()
		return Temperature(f), err
	case SensorHumidity:
		f, err := r.ReadFloat32()
		return Humidity(f), err
	case SensorBattery:
		b, err := r.ReadUint8()
		return Battery(b), err
	case SensorStatus:
		b, err := r.ReadBool()
		return Status(b), err
	case SensorRaw:
		i, err := r.ReadInt32()
		return Raw(i), err
	}
	return nil, nil
}
