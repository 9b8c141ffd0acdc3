// Copyright 2026 The BP3D Tracing Authors.
// Licensed under the Apache License, Version 2.0.

package wire

import "github.com/tinylib/msgp/msgp"

// MarshalMsg encodes Project as a msgpack map. Hand-written in the
// style msgp's code generator would produce, rather than run through
// the generator itself.
func (p Project) MarshalMsg(b []byte) ([]byte, error) {
	o := msgp.AppendMapHeader(b, 6)
	o = msgp.AppendString(o, "app")
	o = msgp.AppendString(o, p.App)
	o = msgp.AppendString(o, "name")
	o = msgp.AppendString(o, p.Name)
	o = msgp.AppendString(o, "version")
	o = msgp.AppendString(o, p.Version)
	o = msgp.AppendString(o, "cmd_line")
	o = msgp.AppendString(o, p.CmdLine)
	o = msgp.AppendString(o, "target")
	o = msgp.AppendArrayHeader(o, 3)
	o = msgp.AppendString(o, p.Target.OS)
	o = msgp.AppendString(o, p.Target.Family)
	o = msgp.AppendString(o, p.Target.Arch)
	o = msgp.AppendString(o, "cpu")
	if p.CPU == nil {
		o = msgp.AppendNil(o)
	} else {
		o = msgp.AppendArrayHeader(o, 2)
		o = msgp.AppendString(o, p.CPU.Name)
		o = msgp.AppendUint32(o, p.CPU.CoreCount)
	}
	return o, nil
}

// UnmarshalMsg decodes a Project previously written by MarshalMsg.
func (p *Project) UnmarshalMsg(bts []byte) ([]byte, error) {
	n, bts, err := msgp.ReadMapHeaderBytes(bts)
	if err != nil {
		return bts, err
	}
	for i := uint32(0); i < n; i++ {
		var key string
		key, bts, err = msgp.ReadStringBytes(bts)
		if err != nil {
			return bts, err
		}
		switch key {
		case "app":
			p.App, bts, err = msgp.ReadStringBytes(bts)
		case "name":
			p.Name, bts, err = msgp.ReadStringBytes(bts)
		case "version":
			p.Version, bts, err = msgp.ReadStringBytes(bts)
		case "cmd_line":
			p.CmdLine, bts, err = msgp.ReadStringBytes(bts)
		case "target":
			var arrN uint32
			arrN, bts, err = msgp.ReadArrayHeaderBytes(bts)
			if err != nil {
				return bts, err
			}
			fields := []*string{&p.Target.OS, &p.Target.Family, &p.Target.Arch}
			for j := uint32(0); j < arrN && j < uint32(len(fields)); j++ {
				*fields[j], bts, err = msgp.ReadStringBytes(bts)
				if err != nil {
					return bts, err
				}
			}
		case "cpu":
			if msgp.IsNil(bts) {
				p.CPU = nil
				bts, err = msgp.ReadNilBytes(bts)
				break
			}
			var arrN uint32
			arrN, bts, err = msgp.ReadArrayHeaderBytes(bts)
			if err != nil {
				return bts, err
			}
			cpu := &CPU{}
			if arrN > 0 {
				cpu.Name, bts, err = msgp.ReadStringBytes(bts)
				if err != nil {
					return bts, err
				}
			}
			if arrN > 1 {
				cpu.CoreCount, bts, err = msgp.ReadUint32Bytes(bts)
				if err != nil {
					return bts, err
				}
			}
			p.CPU = cpu
		default:
			bts, err = msgp.Skip(bts)
		}
		if err != nil {
			return bts, err
		}
	}
	return bts, nil
}
