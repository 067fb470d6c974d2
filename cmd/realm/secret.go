package main

import (
	"bufio"
	"bytes"
	"errors"
	"io"

	"github.com/Arthur-Pio/axelor-open-platform/internal/auth"
)

var errEmptySecret = errors.New("empty secret on stdin")

// readSecret takes the first line of r as the secret. The read buffer is wiped.
func readSecret(r io.Reader) (auth.Secret, error) {
	line, err := bufio.NewReader(r).ReadBytes('\n')
	defer clear(line)
	if err != nil && !errors.Is(err, io.EOF) {
		return auth.Secret{}, err
	}
	trimmed := bytes.TrimRight(line, "\r\n")
	if len(trimmed) == 0 {
		return auth.Secret{}, errEmptySecret
	}
	return auth.SecretFromBytes(trimmed), nil
}

// hashFromStdin reads a secret and returns its stored hash.
func hashFromStdin(r io.Reader) (string, error) {
	secret, err := readSecret(r)
	if err != nil {
		return "", err
	}
	defer secret.Wipe()
	return auth.HashPassword(secret.Bytes())
}
