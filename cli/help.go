// Copyright (c) 2024, The OTNS Authors.
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions are met:
// 1. Redistributions of source code must retain the above copyright
//    notice, this list of conditions and the following disclaimer.
// 2. Redistributions in binary form must reproduce the above copyright
//    notice, this list of conditions and the following disclaimer in the
//    documentation and/or other materials provided with the distribution.
// 3. Neither the name of the copyright holder nor the
//    names of its contributors may be used to endorse or promote products
//    derived from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
// AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
// IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
// ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
// LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
// CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
// SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
// CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
// ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
// POSSIBILITY OF SUCH DAMAGE.

package cli

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/mitchellh/go-wordwrap"
	"golang.org/x/term"
)

// indentWidth is the indentation of a command's help text below its name.
const indentWidth = 2

//go:embed README.md
var cliHelpFile string

var (
	cmdHeaderPattern  = regexp.MustCompile(`^### (\S+)`)
	linkTargetPattern = regexp.MustCompile(`\(#[a-z]+\)`)

	// code blocks of the reference, by fence
	fenceTitles = map[string]string{
		"```shell": "Usage:",
		"```bash":  "Example:",
	}

	// keywords the grammar accepts besides the documented command name
	helpAliases = map[string]string{
		"click": "tap",
		"quit":  "exit",
		"rates": "sf",
	}
)

type helpTopic struct {
	summary string
	text    string
}

// Help is the command reference parsed from the embedded README.md, one topic per "###" section.
type Help struct {
	termWidth uint
	topics    map[string]*helpTopic
}

func newHelp() Help {
	h := Help{
		termWidth: 80,
		topics:    make(map[string]*helpTopic),
	}
	h.parseHelpFile()
	return h
}

// updateWidth follows the width of the terminal the console runs in.
func (help *Help) updateWidth() {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return
	}
	if width, _, err := term.GetSize(fd); err == nil && width > 2*indentWidth {
		help.termWidth = uint(width)
	}
}

func (help *Help) topic(command string) (*helpTopic, bool) {
	if name, ok := helpAliases[command]; ok {
		command = name
	}
	t, ok := help.topics[command]
	return t, ok
}

func (help *Help) outputGeneralHelp() string {
	cmds := make([]string, 0, len(help.topics))
	for k := range help.topics {
		cmds = append(cmds, k)
	}
	sort.Strings(cmds)

	var sb strings.Builder
	for _, c := range cmds {
		sb.WriteString(fmt.Sprintf("%-10s %s\n", c, help.topics[c].summary))
	}
	sb.WriteString(wordwrap.WrapString("\nFor detailed help per command, use: 'help <command>'\n", help.termWidth))
	return sb.String()
}

func (help *Help) outputCommandHelp(command string) string {
	help.updateWidth()
	t, ok := help.topic(command)
	if !ok {
		return command + "\n" + strings.Repeat(" ", indentWidth) + "(Non-existent command.)\n"
	}

	var sb strings.Builder
	for i, line := range strings.Split(wordwrap.WrapString(t.text, help.termWidth-indentWidth), "\n") {
		if i == 0 {
			sb.WriteString(line + "\n")
			continue
		}
		sb.WriteString(strings.Repeat(" ", indentWidth) + line + "\n")
	}
	return sb.String()
}

func (help *Help) parseHelpFile() {
	var cur *helpTopic
	inCode := false
	for _, line := range strings.Split(cliHelpFile, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if m := cmdHeaderPattern.FindStringSubmatch(line); m != nil {
			cur = &helpTopic{text: m[1] + "\n"}
			help.topics[m[1]] = cur
			continue
		}
		if cur == nil {
			continue // the preamble before the first command
		}

		if title, ok := fenceTitles[line]; ok {
			cur.text += "\n" + title + "\n"
			inCode = true
			continue
		}
		if line == "```" {
			inCode = false
			continue
		}

		line = markdownUnquote(line)
		if inCode {
			cur.text += "  " + line + "\n"
			continue
		}
		cur.text += line + "\n"
		if cur.summary == "" {
			cur.summary = line
			if idx := strings.Index(line, "."); idx > 0 {
				cur.summary = line[:idx+1]
			}
		}
	}
}

func markdownUnquote(md string) string {
	md = strings.ReplaceAll(md, "\\", "")
	return linkTargetPattern.ReplaceAllString(md, "")
}
