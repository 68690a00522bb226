package modbus

import (
	"fmt"
	"time"
)

// client performs register/coil transactions against a shared port handle
// for one slave address, re-asserting that address on every call so the
// port can be safely multiplexed across devices.
type client struct {
	handle  *portHandle
	slaveID byte
	timeout time.Duration
}

func (c *client) readHoldingRegisters(addr, count uint16) ([]uint16, error) {
	pdu, err := transact(c.handle, c.slaveID, funcReadHoldingRegisters, encodeAddrCount(addr, count), c.timeout)
	if err != nil {
		return nil, err
	}
	return decodeRegisters(pdu)
}

func (c *client) readInputRegisters(addr, count uint16) ([]uint16, error) {
	pdu, err := transact(c.handle, c.slaveID, funcReadInputRegisters, encodeAddrCount(addr, count), c.timeout)
	if err != nil {
		return nil, err
	}
	return decodeRegisters(pdu)
}

func (c *client) readCoils(addr, count uint16) ([]bool, error) {
	pdu, err := transact(c.handle, c.slaveID, funcReadCoils, encodeAddrCount(addr, count), c.timeout)
	if err != nil {
		return nil, err
	}
	return decodeBits(pdu, int(count))
}

func (c *client) readDiscreteInputs(addr, count uint16) ([]bool, error) {
	pdu, err := transact(c.handle, c.slaveID, funcReadDiscreteInputs, encodeAddrCount(addr, count), c.timeout)
	if err != nil {
		return nil, err
	}
	return decodeBits(pdu, int(count))
}

func (c *client) writeSingleRegister(addr uint16, value uint16) error {
	payload := []byte{byte(addr >> 8), byte(addr), byte(value >> 8), byte(value)}
	_, err := transact(c.handle, c.slaveID, funcWriteSingleRegister, payload, c.timeout)
	return err
}

func (c *client) writeMultipleRegisters(addr uint16, values []uint16) error {
	payload := []byte{byte(addr >> 8), byte(addr), byte(len(values) >> 8), byte(len(values)), byte(len(values) * 2)}
	for _, v := range values {
		payload = append(payload, byte(v>>8), byte(v))
	}
	_, err := transact(c.handle, c.slaveID, funcWriteMultiRegisters, payload, c.timeout)
	return err
}

func (c *client) writeSingleCoil(addr uint16, on bool) error {
	value := uint16(0x0000)
	if on {
		value = 0xFF00
	}
	payload := []byte{byte(addr >> 8), byte(addr), byte(value >> 8), byte(value)}
	_, err := transact(c.handle, c.slaveID, funcWriteSingleCoil, payload, c.timeout)
	return err
}

func readRegisterType(c *client, registerType string, addr, count uint16) (any, error) {
	switch registerType {
	case "Holding":
		vals, err := c.readHoldingRegisters(addr, count)
		return vals, err
	case "Input":
		vals, err := c.readInputRegisters(addr, count)
		return vals, err
	case "Coil":
		vals, err := c.readCoils(addr, count)
		return vals, err
	case "Discrete":
		vals, err := c.readDiscreteInputs(addr, count)
		return vals, err
	default:
		return nil, fmt.Errorf("unknown register type: %s", registerType)
	}
}
