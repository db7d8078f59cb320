// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package ui provides the codegraph CLI's colored console output, gated
// by --no-color and the NO_COLOR environment variable.
package ui

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

var (
	Red    = color.New(color.FgRed)
	Yellow = color.New(color.FgYellow)
	Green  = color.New(color.FgGreen)
	Cyan   = color.New(color.FgCyan)
	Bold   = color.New(color.Bold)
	Dim    = color.New(color.Faint)
)

// InitColors configures global color output. Call once, early in main,
// after flags are parsed.
func InitColors(noColor bool) {
	color.NoColor = noColor
}

func Success(msg string) { _, _ = Green.Println("✓ " + msg) }

func Successf(format string, args ...any) { _, _ = Green.Printf("✓ "+format+"\n", args...) }

func Warning(msg string) { _, _ = Yellow.Println("⚠ " + msg) }

func Warningf(format string, args ...any) { _, _ = Yellow.Printf("⚠ "+format+"\n", args...) }

func Error(msg string) { _, _ = Red.Println("✗ " + msg) }

func Errorf(format string, args ...any) { _, _ = Red.Printf("✗ "+format+"\n", args...) }

func Info(msg string) { _, _ = Cyan.Println("ℹ " + msg) }

func Infof(format string, args ...any) { _, _ = Cyan.Printf("ℹ "+format+"\n", args...) }

// Header prints a bold title followed by an underline of '=' matching its
// length.
func Header(text string) {
	_, _ = Bold.Println(text)
	fmt.Println(strings.Repeat("=", len(text)))
}

func SubHeader(text string) { _, _ = Bold.Println(text) }

func Label(text string) string { return Bold.Sprint(text) }

func DimText(text string) string { return Dim.Sprint(text) }

func CountText(count int) string { return Cyan.Sprint(count) }
