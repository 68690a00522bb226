package modbus

import (
	"fmt"
	"io"
	"time"
)

// Function codes used by this driver. Modbus RTU defines many more; only
// the ones the edge agent's register types exercise are implemented.
const (
	funcReadCoils            byte = 0x01
	funcReadDiscreteInputs   byte = 0x02
	funcReadHoldingRegisters byte = 0x03
	funcReadInputRegisters   byte = 0x04
	funcWriteSingleCoil      byte = 0x05
	funcWriteSingleRegister  byte = 0x06
	funcWriteMultiRegisters  byte = 0x10
)

// Transport is the physical link a Modbus RTU frame is sent over. It is
// satisfied by a serial port; tests substitute an in-memory pipe.
type Transport interface {
	io.ReadWriteCloser
}

// crc16 computes the Modbus RTU CRC over data, transmitted little-endian.
func crc16(data []byte) uint16 {
	var crc uint16 = 0xFFFF
	for _, b := range data {
		crc ^= uint16(b)
		for i := 0; i < 8; i++ {
			if crc&1 != 0 {
				crc >>= 1
				crc ^= 0xA001
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}

func appendCRC(frame []byte) []byte {
	crc := crc16(frame)
	return append(frame, byte(crc&0xFF), byte(crc>>8))
}

// exception is a Modbus protocol-level exception response (function code
// returned with the high bit set, followed by an exception code byte).
type exception struct {
	function byte
	code     byte
}

func (e *exception) Error() string {
	return fmt.Sprintf("modbus exception: function=0x%02X code=0x%02X", e.function, e.code)
}

// transact sends request over h's transport under its transaction mutex and
// returns the response PDU (function code and payload, CRC already
// verified and stripped). slave re-asserts the slave address on every call
// since the shared port may be multiplexed across devices with different
// addresses.
func transact(h *portHandle, slaveID byte, function byte, payload []byte, timeout time.Duration) ([]byte, error) {
	h.txMu.Lock()
	defer h.txMu.Unlock()

	frame := append([]byte{slaveID, function}, payload...)
	frame = appendCRC(frame)

	if _, err := h.transport.Write(frame); err != nil {
		return nil, fmt.Errorf("modbus write error: %w", err)
	}

	resultCh := make(chan readOutcome, 1)
	go func() {
		buf := make([]byte, 256)
		n, err := h.transport.Read(buf)
		resultCh <- readOutcome{n: n, err: err, buf: buf}
	}()

	select {
	case res := <-resultCh:
		if res.err != nil {
			return nil, fmt.Errorf("modbus read error: %w", res.err)
		}
		return parseResponse(res.buf[:res.n], slaveID, function)
	case <-time.After(timeout):
		return nil, fmt.Errorf("modbus request timed out after %s", timeout)
	}
}

type readOutcome struct {
	n   int
	err error
	buf []byte
}

func parseResponse(frame []byte, slaveID, function byte) ([]byte, error) {
	if len(frame) < 4 {
		return nil, fmt.Errorf("modbus response too short: %d bytes", len(frame))
	}

	body, crcBytes := frame[:len(frame)-2], frame[len(frame)-2:]
	got := uint16(crcBytes[0]) | uint16(crcBytes[1])<<8
	if want := crc16(body); got != want {
		return nil, fmt.Errorf("modbus CRC mismatch: got 0x%04X want 0x%04X", got, want)
	}

	if body[0] != slaveID {
		return nil, fmt.Errorf("modbus response slave id mismatch: got %d want %d", body[0], slaveID)
	}

	respFunc := body[1]
	if respFunc&0x80 != 0 {
		code := byte(0)
		if len(body) > 2 {
			code = body[2]
		}
		return nil, &exception{function: respFunc &^ 0x80, code: code}
	}
	if respFunc != function {
		return nil, fmt.Errorf("modbus response function mismatch: got 0x%02X want 0x%02X", respFunc, function)
	}
	return body[2:], nil
}

func encodeAddrCount(addr, count uint16) []byte {
	return []byte{byte(addr >> 8), byte(addr), byte(count >> 8), byte(count)}
}

func decodeRegisters(pdu []byte) ([]uint16, error) {
	if len(pdu) < 1 {
		return nil, fmt.Errorf("modbus register response missing byte count")
	}
	byteCount := int(pdu[0])
	if len(pdu) < 1+byteCount || byteCount%2 != 0 {
		return nil, fmt.Errorf("modbus register response malformed byte count %d", byteCount)
	}
	words := make([]uint16, byteCount/2)
	for i := range words {
		words[i] = uint16(pdu[1+2*i])<<8 | uint16(pdu[2+2*i])
	}
	return words, nil
}

func decodeBits(pdu []byte, count int) ([]bool, error) {
	if len(pdu) < 1 {
		return nil, fmt.Errorf("modbus bit response missing byte count")
	}
	byteCount := int(pdu[0])
	if len(pdu) < 1+byteCount {
		return nil, fmt.Errorf("modbus bit response malformed byte count %d", byteCount)
	}
	bits := make([]bool, 0, count)
	for i := 0; i < count; i++ {
		byteIdx, bitIdx := i/8, i%8
		bits = append(bits, pdu[1+byteIdx]&(1<<bitIdx) != 0)
	}
	return bits, nil
}
