// Package main печатает bcrypt-хеш пароля для файла разделов.
//
//	echo -n 'secret' | hashpw
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/mmeshcher/barbershop-ledger/internal/tenant"
)

func main() {
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(os.Stderr, "read password from stdin:", err)
		os.Exit(1)
	}

	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		fmt.Fprintln(os.Stderr, "password is empty")
		os.Exit(1)
	}

	hash, err := tenant.HashPassword(password)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(hash)
}
