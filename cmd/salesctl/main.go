// Command salesctl seeds, validates and analyses the sales store from the
// command line and manages dashboard credentials.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
