package modbuscomm

import (
	"encoding/binary"
	"fmt"
	"math"
)

// DataType defines the type of a holding register for encoding
type DataType string

const (
	u16 DataType = "u16"
	u32 DataType = "u32"
	u64 DataType = "u64"
	i16 DataType = "i16"
	i32 DataType = "i32"
	i64 DataType = "i64"
	f32 DataType = "f32"
	f64 DataType = "f64"
)

// Endian is the byte order of a holding register
type Endian string

const (
	littleEndian Endian = "little"
	bigEndian    Endian = "big"
)

// Register is a holding register written with a value from the status snapshot.
type Register struct {
	Address    uint16   `json:"Address"`
	DataType   DataType `json:"DataType"`
	Endianness Endian   `json:"Endianness"`
}

func (r Register) validate() error {
	if sizeOf(r.DataType) == 0 {
		return fmt.Errorf("register %v: unknown data type %q", r.Address, r.DataType)
	}
	switch r.Endianness {
	case "", bigEndian, littleEndian:
		return nil
	}
	return fmt.Errorf("register %v: unknown endianness %q", r.Address, r.Endianness)
}

// encode converts a float64 into register bytes
func encode(val float64, register Register) []byte {
	bytes := make([]byte, 2*sizeOf(register.DataType))
	endian := byteOrder(register.Endianness)
	switch register.DataType {
	case u16:
		endian.PutUint16(bytes, uint16(val))
	case i16:
		endian.PutUint16(bytes, uint16(int16(val)))
	case u32:
		endian.PutUint32(bytes, uint32(val))
	case i32:
		endian.PutUint32(bytes, uint32(int32(val)))
	case f32:
		endian.PutUint32(bytes, math.Float32bits(float32(val)))
	case u64:
		endian.PutUint64(bytes, uint64(val))
	case i64:
		endian.PutUint64(bytes, uint64(int64(val)))
	case f64:
		endian.PutUint64(bytes, math.Float64bits(val))
	}
	return bytes
}

func byteOrder(e Endian) binary.ByteOrder {
	if e == littleEndian {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// sizeOf returns the number of 16 bit registers for the datatype
func sizeOf(t DataType) uint16 {
	switch t {
	case u16, i16:
		return 1
	case u32, i32, f32:
		return 2
	case u64, i64, f64:
		return 4
	}
	return 0
}

// coil reports bit n of a ReadCoils response. Coils are packed LSB first.
func coil(bits []byte, n uint16) bool {
	i := int(n / 8)
	if i >= len(bits) {
		return false
	}
	return bits[i]&(1<<(n%8)) != 0
}
