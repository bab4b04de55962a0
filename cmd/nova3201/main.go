/*
 * Nova3201 - Simulator command line.
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

package main

import (
	"fmt"
	"log/slog"
	"os"

	getopt "github.com/pborman/getopt/v2"

	"github.com/jaytaph/nova3201/bus"
	"github.com/jaytaph/nova3201/command/reader"
	"github.com/jaytaph/nova3201/config/configparser"
	"github.com/jaytaph/nova3201/cpu"
	"github.com/jaytaph/nova3201/device"
	"github.com/jaytaph/nova3201/machine"
	"github.com/jaytaph/nova3201/nvobj"
	"github.com/jaytaph/nova3201/util/debug"
	"github.com/jaytaph/nova3201/util/logger"
)

const defaultMaxSteps = 10000

var log *slog.Logger

func main() {
	optConfig := getopt.StringLong("config", 'c', "", "Configuration file")
	optLogFile := getopt.StringLong("log", 'l', "", "Log file")
	optInteractive := getopt.BoolLong("interactive", 'i', "Drop into the monitor instead of free-running")
	optMaxSteps := getopt.IntLong("max-steps", 'n', defaultMaxSteps, "Maximum cycles to run in free-running mode")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	var file *os.File
	if *optLogFile != "" {
		file, _ = os.Create(*optLogFile)
	}
	programLevel := new(slog.LevelVar)
	programLevel.Set(slog.LevelInfo)
	log = slog.New(logger.NewHandler(file, &slog.HandlerOptions{Level: programLevel}, new(bool)))
	slog.SetDefault(log)

	args := getopt.Args()
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: nova3201 <program.nvb> [-i] [-c config]")
		os.Exit(2)
	}

	var uartBackend device.Backend = device.NewStdioBackend(os.Stdout)
	m := machine.New(uartBackend)

	if *optConfig != "" {
		registerConfigDirectives(m)
		if err := configparser.LoadConfigFile(*optConfig); err != nil {
			log.Error(err.Error())
			os.Exit(1)
		}
	}
	if debug.Enabled() {
		log.Info("debug trace file open")
		bus.DebugMask = 1
		cpu.DebugMask = 1
	}
	defer debug.Close()

	if err := loadProgram(m, args[0]); err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}

	if *optInteractive {
		reader.ConsoleReader(m)
		return
	}

	steps, err := m.Run(*optMaxSteps)
	if err != nil {
		log.Error(fmt.Sprintf("stopped with error after %d cycles: %s", steps, err.Error()))
		os.Exit(1)
	}
	if !m.CPU.Halted {
		log.Warn(fmt.Sprintf("stopped after %d cycles without halting", steps))
	}
}

func loadProgram(m *machine.Machine, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	obj, err := nvobj.Read(f)
	if err != nil {
		return err
	}
	return nvobj.Load(m.Bus, obj)
}

// registerConfigDirectives wires a config file's "rom" directive to
// preload an additional NV32 image on top of the one named on the
// command line. The "debugfile" directive is registered by the debug
// package's own init.
func registerConfigDirectives(m *machine.Machine) {
	configparser.RegisterOption("rom", func(value string, _ []configparser.Option) error {
		return loadProgram(m, value)
	})
}
