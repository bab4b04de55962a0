/*
 * Configuration file parser
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

// Package configparser reads the simulator's flat, line-oriented
// configuration file: one directive per line, a bare value or
// comma-separated suboptions, '#' comments. There are no addressable
// devices in this configuration (unlike the channel-attached model this
// parser was adapted from) — every directive is a named setting or a
// switch.
package configparser

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"
)

// Option is one comma-separated suboption following a directive's
// first value, e.g. the "oneshot" in "timer1 period=1000, oneshot".
type Option struct {
	Name     string // Name of option.
	EqualOpt string // Value of string after =.
}

type directiveDef struct {
	isSwitch bool
	onValue  func(value string, options []Option) error
	onSwitch func() error
}

var directives = map[string]directiveDef{}

var lineNumber int

// RegisterOption registers a directive that takes a value (bare or
// quoted) and optional comma-separated suboptions, e.g.
// `debugfile "trace.log"` or `timer1 period=1000, oneshot`.
func RegisterOption(name string, fn func(value string, options []Option) error) {
	directives[strings.ToUpper(name)] = directiveDef{onValue: fn}
}

// RegisterSwitch registers a bare flag directive with no value, e.g.
// `headless`.
func RegisterSwitch(name string, fn func() error) {
	directives[strings.ToUpper(name)] = directiveDef{isSwitch: true, onSwitch: fn}
}

// LoadConfigFile reads and applies every directive in a config file.
func LoadConfigFile(name string) error {
	file, err := os.Open(name)
	if err != nil {
		return err
	}
	defer file.Close()

	lineNumber = 0
	reader := bufio.NewReader(file)
	for {
		raw, err := reader.ReadString('\n')
		lineNumber++
		if len(raw) == 0 && err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		l := &line{text: raw}
		if perr := l.parse(); perr != nil {
			return perr
		}
		if err != nil && errors.Is(err, io.EOF) {
			return nil
		}
	}
}

// line is the current position within one line being parsed.
type line struct {
	text string
	pos  int
}

func (l *line) parse() error {
	l.skipSpace()
	if l.isEOL() {
		return nil
	}

	name := l.readName()
	if name == "" {
		return fmt.Errorf("invalid directive at line %d", lineNumber)
	}
	def, ok := directives[strings.ToUpper(name)]
	if !ok {
		return fmt.Errorf("unknown directive %q at line %d", name, lineNumber)
	}

	if def.isSwitch {
		l.skipSpace()
		if !l.isEOL() {
			return fmt.Errorf("switch directive %q takes no value, line %d", name, lineNumber)
		}
		return def.onSwitch()
	}

	l.skipSpace()
	value, err := l.readValue()
	if err != nil {
		return err
	}

	options, err := l.parseOptions()
	if err != nil {
		return err
	}

	return def.onValue(value, options)
}

func (l *line) skipSpace() {
	for l.pos < len(l.text) && unicode.IsSpace(rune(l.text[l.pos])) {
		l.pos++
	}
}

func (l *line) isEOL() bool {
	return l.pos >= len(l.text) || l.text[l.pos] == '#'
}

func (l *line) readName() string {
	start := l.pos
	for l.pos < len(l.text) {
		c := l.text[l.pos]
		if unicode.IsLetter(rune(c)) || unicode.IsDigit(rune(c)) || c == '_' {
			l.pos++
			continue
		}
		break
	}
	return l.text[start:l.pos]
}

// readValue reads a bare token or a "quoted string" up to the next
// comma, '#', or end of line.
func (l *line) readValue() (string, error) {
	if l.isEOL() {
		return "", nil
	}

	if l.text[l.pos] == '"' {
		end := strings.IndexByte(l.text[l.pos+1:], '"')
		if end < 0 {
			return "", fmt.Errorf("unterminated quoted string at line %d", lineNumber)
		}
		v := l.text[l.pos+1 : l.pos+1+end]
		l.pos += end + 2
		return v, nil
	}

	start := l.pos
	for l.pos < len(l.text) {
		c := l.text[l.pos]
		if c == ',' || c == '#' || unicode.IsSpace(rune(c)) {
			break
		}
		l.pos++
	}
	return l.text[start:l.pos], nil
}

// parseOptions collects comma-separated suboptions after a value,
// each either a bare NAME or a NAME=VALUE with a single value; a comma
// after the value starts the next suboption.
func (l *line) parseOptions() ([]Option, error) {
	var opts []Option
	for {
		l.skipSpace()
		if l.isEOL() || l.text[l.pos] != ',' {
			break
		}
		l.pos++ // consume comma
		l.skipSpace()

		name := l.readName()
		if name == "" {
			return nil, fmt.Errorf("expected option name at line %d", lineNumber)
		}
		opt := Option{Name: name}

		if !l.isEOL() && l.pos < len(l.text) && l.text[l.pos] == '=' {
			l.pos++
			v, err := l.readValue()
			if err != nil {
				return nil, err
			}
			opt.EqualOpt = v
			opts = append(opts, opt)
			continue
		}

		opts = append(opts, opt)
	}
	return opts, nil
}
