/*
 * Command executer.
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package parser

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/jaytaph/nova3201/isa"
	"github.com/jaytaph/nova3201/machine"
	"github.com/jaytaph/nova3201/nvobj"
)

// breakpoints is the monitor's active breakpoint set. A single
// interactive session drives one machine at a time, so package-level
// state is sufficient and avoids threading it through every command.
var breakpoints = map[uint32]bool{}

func parseUint32(tok string) (uint32, error) {
	tok = strings.TrimSpace(tok)
	base := 10
	if strings.HasPrefix(tok, "0x") || strings.HasPrefix(tok, "0X") {
		tok = tok[2:]
		base = 16
	}
	v, err := strconv.ParseUint(tok, base, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", tok)
	}
	return uint32(v), nil
}

// step advances the machine N cycles (default 1), stopping early on halt
// or error.
func step(line *cmdLine, m *machine.Machine) (bool, error) {
	count := 1
	if tok := line.getWord(); tok != "" {
		n, err := parseUint32(tok)
		if err != nil {
			return false, err
		}
		count = int(n)
	}

	for i := 0; i < count; i++ {
		if m.CPU.Halted {
			fmt.Println("halted")
			break
		}
		if err := m.Step(); err != nil {
			return false, err
		}
		if breakpoints[m.CPU.PC] {
			fmt.Printf("breakpoint hit at 0x%08X\n", m.CPU.PC)
			break
		}
	}
	printRegs(m)
	return false, nil
}

// run executes until halt, a breakpoint, an error, or maxSteps cycles.
func run(line *cmdLine, m *machine.Machine) (bool, error) {
	maxSteps := 1_000_000
	if tok := line.getWord(); tok != "" {
		n, err := parseUint32(tok)
		if err != nil {
			return false, err
		}
		maxSteps = int(n)
	}

	for i := 0; i < maxSteps; i++ {
		if m.CPU.Halted {
			break
		}
		if err := m.Step(); err != nil {
			return false, err
		}
		if breakpoints[m.CPU.PC] {
			fmt.Printf("breakpoint hit at 0x%08X\n", m.CPU.PC)
			break
		}
	}
	printRegs(m)
	return false, nil
}

func printRegs(m *machine.Machine) {
	fmt.Printf("PC=%08X SR=%08X EPC=%08X CAUSE=%08X (%s) halted=%v\n",
		m.CPU.PC, m.CPU.SR, m.CPU.EPC, m.CPU.CAUSE, isa.CauseString(m.CPU.CAUSE), m.CPU.Halted)
}

func regs(_ *cmdLine, m *machine.Machine) (bool, error) {
	printRegs(m)
	for i := 0; i < 32; i += 4 {
		fmt.Printf("r%-2d=%08X r%-2d=%08X r%-2d=%08X r%-2d=%08X\n",
			i, m.CPU.Regs[i], i+1, m.CPU.Regs[i+1], i+2, m.CPU.Regs[i+2], i+3, m.CPU.Regs[i+3])
	}
	return false, nil
}

// mem dumps count words (default 1) starting at addr.
func mem(line *cmdLine, m *machine.Machine) (bool, error) {
	addrTok := line.getWord()
	if addrTok == "" {
		return false, errors.New("mem requires an address")
	}
	addr, err := parseUint32(addrTok)
	if err != nil {
		return false, err
	}

	count := 1
	if tok := line.getWord(); tok != "" {
		n, err := parseUint32(tok)
		if err != nil {
			return false, err
		}
		count = int(n)
	}

	for i := 0; i < count; i++ {
		word, err := m.Bus.Load32(addr + uint32(i)*4)
		if err != nil {
			return false, err
		}
		opcode := word >> 26 & 0x3F
		fmt.Printf("%08X: %08X  %s\n", addr+uint32(i)*4, word, isa.OpName(opcode))
	}
	return false, nil
}

func setBreak(line *cmdLine, _ *machine.Machine) (bool, error) {
	tok := line.getWord()
	if tok == "" {
		return false, errors.New("break requires an address")
	}
	addr, err := parseUint32(tok)
	if err != nil {
		return false, err
	}
	breakpoints[addr] = true
	fmt.Printf("breakpoint set at 0x%08X\n", addr)
	return false, nil
}

func clearBreak(line *cmdLine, _ *machine.Machine) (bool, error) {
	tok := line.getWord()
	if tok == "" {
		breakpoints = map[uint32]bool{}
		fmt.Println("all breakpoints cleared")
		return false, nil
	}
	addr, err := parseUint32(tok)
	if err != nil {
		return false, err
	}
	delete(breakpoints, addr)
	return false, nil
}

// load reads an NV32 image from path and installs it into the bus.
func load(line *cmdLine, m *machine.Machine) (bool, error) {
	path := line.rest()
	if path == "" {
		return false, errors.New("load requires a file path")
	}

	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("load: %w", err)
	}
	defer f.Close()

	obj, err := nvobj.Read(f)
	if err != nil {
		return false, fmt.Errorf("load: %w", err)
	}
	if err := nvobj.Load(m.Bus, obj); err != nil {
		return false, fmt.Errorf("load: %w", err)
	}
	fmt.Printf("loaded %d segments from %s\n", len(obj.Segments), path)
	return false, nil
}

func reset(_ *cmdLine, m *machine.Machine) (bool, error) {
	m.Reset()
	fmt.Println("reset")
	return false, nil
}

func quit(_ *cmdLine, _ *machine.Machine) (bool, error) {
	return true, nil
}
