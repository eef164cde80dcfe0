package fsx

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// StatPath returns the file info of filePath. A missing path is (nil, false, nil).
func StatPath(filePath string) (os.FileInfo, bool, error) {
	s, err := os.Stat(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return s, true, nil
}

func PathExists(filePath string) (os.FileInfo, bool) {
	s, exists, _ := StatPath(filePath)
	return s, exists
}

// Copy copies src to dst, creating the parent directories of dst.
func Copy(src string, dst string, perm os.FileMode) error {
	// Open the source file
	inputFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("couldn't open source file: %w", err)
	}
	defer CloseFile(inputFile)

	if err = os.MkdirAll(filepath.Dir(dst), dirMode(perm)); err != nil {
		return fmt.Errorf("couldn't create destination directory: %w", err)
	}

	// Open the destination file
	outputFile, err := os.OpenFile(dst, os.O_RDWR|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("couldn't open destination file: %w", err)
	}
	defer CloseFile(outputFile)

	// Copy the contents from the source to the destination
	if _, err = io.Copy(outputFile, inputFile); err != nil {
		return fmt.Errorf("couldn't copy to destination from source: %w", err)
	}

	// Flush the output file to ensure all data is written
	if err = outputFile.Sync(); err != nil {
		return fmt.Errorf("failed to flush destination file: %w", err)
	}

	return nil
}

// dirMode adds the search bit wherever perm grants read.
func dirMode(perm os.FileMode) os.FileMode {
	return perm | (perm&0o444)>>2
}

func CloseFile(file *os.File) {
	if file == nil {
		return
	}

	_ = file.Close()
}

// FileMD5 returns the hex MD5 of the file, which is also the S3 ETag of a single-part upload.
func FileMD5(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}

	defer CloseFile(file)

	hash := md5.New()
	_, err = io.Copy(hash, file)
	if err != nil {
		return "", fmt.Errorf("failed to compute hash of the file: %w", err)
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}
