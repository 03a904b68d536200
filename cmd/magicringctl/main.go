/*
 *
 * Copyright 2025 gRPC authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 */

// Command magicringctl creates, opens, inspects, and removes a single named
// magic ring buffer from the command line. It treats the ring's element
// type as an opaque byte: element-size and element-type are recorded in the
// config sidecar for humans (and for other-language readers of the same
// buffer) but the tool itself never needs a compile-time T.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/shmring/magicring/config"
	"github.com/shmring/magicring/layout"
	"github.com/shmring/magicring/ring"
)

type emptyHeader struct{}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "create":
		runCreate(os.Args[2:])
	case "open":
		runOpen(os.Args[2:])
	case "inspect":
		runInspect(os.Args[2:])
	case "rm":
		runRemove(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: magicringctl <create|open|inspect|rm> [flags]")
}

func runCreate(args []string) {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	project := fs.String("project", "magicring", "project name (config sub-directory)")
	name := fs.String("name", "", "ring name (shared-memory object name)")
	count := fs.Uint64("count", 0, "requested element count")
	elemSize := fs.Uint64("element-size", 1, "element size in bytes")
	elemType := fs.String("element-type", "byte", "element type label, recorded for humans only")
	fs.Parse(args)

	if *name == "" || *count == 0 {
		log.Fatalf("create: -name and -count are required")
	}

	r, err := ring.Create[byte, emptyHeader](*name, (*count)*(*elemSize), nil)
	if err != nil {
		log.Fatalf("create %q: %v", *name, err)
	}
	defer r.Close()

	doc := config.Document{
		ProjectName:    *project,
		Name:           *name,
		ShmPath:        *name,
		NumConnections: 0,
		LibraryVersion: config.LibraryVersion,
		ShmSize:        r.Len(),
		ElementSize:    *elemSize,
		ElementType:    *elemType,
	}
	if err := config.Save(doc); err != nil {
		log.Fatalf("create %q: save config: %v", *name, err)
	}

	fmt.Printf("created %q: %d bytes (requested %d elements x %d bytes)\n", *name, r.Len(), *count, *elemSize)
	printLayout(r.Layout())
}

func runOpen(args []string) {
	fs := flag.NewFlagSet("open", flag.ExitOnError)
	project := fs.String("project", "magicring", "project name (config sub-directory)")
	name := fs.String("name", "", "ring name (shared-memory object name)")
	writable := fs.Bool("writable", false, "open read-write instead of read-only")
	fs.Parse(args)

	if *name == "" {
		log.Fatalf("open: -name is required")
	}

	doc, err := config.Load(*project, *name)
	if err != nil {
		log.Fatalf("open %q: load config: %v", *name, err)
	}

	r, err := ring.Open[byte, emptyHeader](*name, doc.ShmSize, *writable, nil)
	if err != nil {
		log.Fatalf("open %q: %v", *name, err)
	}
	defer r.Close()

	count, head, tail := r.CurrentState()
	fmt.Printf("opened %q: %d bytes, count=%d head=%d tail=%d\n", *name, r.Len(), count, head, tail)
}

func runInspect(args []string) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	project := fs.String("project", "magicring", "project name (config sub-directory)")
	name := fs.String("name", "", "ring name (shared-memory object name)")
	fs.Parse(args)

	if *name == "" {
		log.Fatalf("inspect: -name is required")
	}

	doc, err := config.Load(*project, *name)
	if err != nil {
		log.Fatalf("inspect %q: load config: %v", *name, err)
	}
	fmt.Printf("config: %+v\n", doc)

	r, err := ring.Open[byte, emptyHeader](*name, doc.ShmSize, false, nil)
	if err != nil {
		log.Fatalf("inspect %q: open: %v", *name, err)
	}
	defer r.Close()

	printLayout(r.Layout())
	count, head, tail := r.CurrentState()
	fmt.Printf("state: count=%d head=%d tail=%d\n", count, head, tail)
}

func runRemove(args []string) {
	fs := flag.NewFlagSet("rm", flag.ExitOnError)
	project := fs.String("project", "magicring", "project name (config sub-directory)")
	name := fs.String("name", "", "ring name (shared-memory object name)")
	fs.Parse(args)

	if *name == "" {
		log.Fatalf("rm: -name is required")
	}

	if ring.Exists(*name) {
		doc, err := config.Load(*project, *name)
		if err == nil {
			if r, err := ring.Open[byte, emptyHeader](*name, doc.ShmSize, true, nil); err == nil {
				// On the POSIX and Windows back-ends, Close unlinks the
				// backing object outright. On memfd, only the creating
				// process's own Close does that; closing an Open'd handle
				// here just unmaps this process's view, so the object
				// persists until its creator exits (§9 open question 1).
				if err := r.Close(); err != nil {
					log.Printf("rm %q: close: %v", *name, err)
				}
			} else {
				log.Printf("rm %q: open for removal: %v", *name, err)
			}
		} else {
			log.Printf("rm %q: load config: %v", *name, err)
		}
	}

	if err := config.Remove(*project, *name); err != nil {
		log.Fatalf("rm %q: remove config: %v", *name, err)
	}
	fmt.Printf("removed %q\n", *name)
}

func printLayout(d layout.Descriptor) {
	fmt.Printf("layout: %+v\n", d)
}
