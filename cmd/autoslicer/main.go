/*
Copyright © 2024 vinja <vinja@fastmail.com>
*/

package main

import "log"

func main() {
	if err := Execute(); err != nil {
		log.Fatal(err)
	}
}
