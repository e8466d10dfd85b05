// Command testserver runs the test API server standalone for manual runs
// against a local endpoint.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"

	"reqdiff/testserver"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	flag.Parse()

	srv := testserver.NewServer()
	fmt.Printf("test server listening on %s\n", *addr)
	if err := http.ListenAndServe(*addr, srv.Handler()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
