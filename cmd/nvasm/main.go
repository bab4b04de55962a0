/*
 * Nova3201 - Assembler command line.
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
	"os"
	"strings"

	getopt "github.com/pborman/getopt/v2"

	"github.com/jaytaph/nova3201/assemble"
	"github.com/jaytaph/nova3201/nvobj"
)

func main() {
	optOutput := getopt.StringLong("output", 'o', "", "Output .nvb file")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	args := getopt.Args()
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: nvasm <input.s> [-o output.nvb]")
		os.Exit(2)
	}

	inputPath := args[0]
	outputPath := *optOutput
	if outputPath == "" {
		outputPath = replaceExt(inputPath, ".nvb")
	}

	source, err := os.ReadFile(inputPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "nvasm: "+err.Error())
		os.Exit(1)
	}

	obj, err := assemble.Assemble(string(source))
	if err != nil {
		fmt.Fprintln(os.Stderr, "nvasm: "+err.Error())
		os.Exit(1)
	}

	out, err := os.Create(outputPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "nvasm: "+err.Error())
		os.Exit(1)
	}
	defer out.Close()

	if err := nvobj.Write(out, obj); err != nil {
		fmt.Fprintln(os.Stderr, "nvasm: "+err.Error())
		os.Exit(1)
	}
}

func replaceExt(path, ext string) string {
	if idx := strings.LastIndexByte(path, '.'); idx >= 0 {
		return path[:idx] + ext
	}
	return path + ext
}
