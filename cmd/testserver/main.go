// Copyright 2025 Agentic World, LLC (Sherin Thomas)
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

// Local playground for manual testing. Hosts the crawl-target test site and
// a mock rendering service so the CLI and MCP server can be exercised
// without a real rendering deployment.
package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/agentberlin/vinesnake/testutil"
)

func main() {
	// Parse command-line flags
	port := flag.Int("port", 0, "Fixed port for the crawl-target site (0 picks a free port)")
	apiKey := flag.String("api-key", "", "Require this bearer token on the mock rendering service")
	flag.Parse()

	site := testutil.NewUnstartedSiteServer()
	if *port > 0 {
		ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", *port))
		if err != nil {
			log.Fatalf("Failed to listen on port %d: %v", *port, err)
		}
		site.Listener.Close()
		site.Listener = ln
	}
	site.Start()
	defer site.Close()

	svc := testutil.NewRenderServiceServer()
	svc.APIKey = *apiKey
	defer svc.Close()

	log.Printf("Crawl-target site:      %s", site.URL)
	log.Printf("Mock rendering service: %s", svc.URL())
	log.Printf("Try: vinesnake crawl %s/ with remote.base_url set to %s", site.URL, svc.URL())

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down test servers...")
}
