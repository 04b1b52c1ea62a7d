// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

func source() string { return "secret" }

func sink(s string) {}

type Handler interface {
	Handle(s string) string
}

type Echo struct{}

func (Echo) Handle(s string) string { return s }

type Blank struct{}

func (*Blank) Handle(s string) string { return "" }

type Store interface {
	Put(s string)
}

type memory struct {
	items []string
}

func (m *memory) Put(s string) { m.items = append(m.items, s) }

func run(h Handler, s string) string { return h.Handle(s) }

func save(st Store, s string) {
	st.Put(s) // @Sink(store)
}

func main() {
	x := source()          // @Source(echo, store)
	sink(run(Echo{}, x))   // @Sink(echo)
	sink(run(&Blank{}, x)) // @Sink(echo)
	sink(run(Echo{}, "ok"))
	save(&memory{}, x)
}
