package codec

import "github.com/sigurn/crc16"

// modbusTable implements CRC-16/IBM (polynomial 0xA001 reflected, init
// 0xFFFF, no final XOR), the Modbus-style variant.
var modbusTable = crc16.MakeTable(crc16.CRC16_MODBUS)

// CRC16 computes the CRC-16/IBM checksum used to cross-check reassembled
// file bytes.
func CRC16(data []byte) uint16 {
	return crc16.Checksum(data, modbusTable)
}

// Checksum computes the 16-bit additive sum of data, modulo 2^16. No
// third-party library covers this trivial accumulator, so it stays on the
// standard library (see DESIGN.md).
func Checksum(data []byte) uint16 {
	var sum uint32
	for _, b := range data {
		sum += uint32(b)
	}
	return uint16(sum % 0x10000)
}
