/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"regexp"
	"strings"
)

// reEscaped matches a backslash in front of markdown punctuation.
var reEscaped = regexp.MustCompile(`\\([\\` + "`" + `*_{}\[\]()#+\-.!])`)

// Unescape replaces backslash-escaped markdown punctuation by the bare character.
// Only \ ` * _ { } [ ] ( ) # + - . ! are affected; other backslashes stay.
func Unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	return reEscaped.ReplaceAllString(s, "$1")
}

// normalize prepares a raw source line for classification.
func normalize(raw string) string {
	return Unescape(strings.TrimSpace(raw))
}
