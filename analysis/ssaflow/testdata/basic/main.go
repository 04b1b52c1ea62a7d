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

func sanitize(s string) string { return "" }

func id(s string) string { return s }

func concat(a, b string) string { return a + b }

type Wrapper struct {
	data  string
	other string
}

type Request struct{}

// Handle is itself a source: its parameters are tainted.
func (Request) Handle(body string) { // @Source(body)
	sink(body) // @Sink(body)
}

func fields() {
	w := &Wrapper{}
	w.data = source() // @Source(field)
	w.other = "ok"
	sink(w.data) // @Sink(field)
}

func closures() {
	x := source() // @Source(closure)
	f := func() { sink(x) } // @Sink(closure)
	f()
}

func maps() {
	m := map[string]string{}
	m["k"] = source() // @Source(maps)
	sink(m["k"])      // @Sink(maps)
}

func loop(n int) string {
	s := ""
	for i := 0; i < n; i++ {
		s = concat(s, source()) // @Source(loop)
	}
	return s
}

func main() {
	a := source() // @Source(direct, through, concat)
	sink(a)       // @Sink(direct)
	b := id(a)
	sink(b) // @Sink(through)
	sink(concat("x", a)) // @Sink(concat)
	c := sanitize(a)
	sink(c)
	sink(a) //ifds:ignore
	sink(id("clean"))
	fields()
	closures()
	maps()
	sink(loop(3)) // @Sink(loop)
	Request{}.Handle("")
}
