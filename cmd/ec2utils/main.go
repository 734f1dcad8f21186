package main

import (
	"fmt"
	"os"

	"github.com/younsl/ec2utils/internal/logger"
)

func main() {
	err := newRootCmd(newApp()).Execute()
	logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
