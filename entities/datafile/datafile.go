//                           _       _
// __      _____  __ ___   ___  __ _| |_ ___
// \ \ /\ / / _ \/ _` \ \ / / |/ _` | __/ _ \
//  \ V  V /  __/ (_| |\ V /| | (_| | ||  __/
//   \_/\_/ \___|\__,_| \_/ |_|\__,_|\__\___|
//
//  Copyright © 2016 - 2025 Weaviate B.V. All rights reserved.
//
//  CONTACT: hello@weaviate.io
//

package datafile

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const (
	BaseFileExtension = ".parquet"
	logFileMarker     = ".log."
)

// NewWriteToken returns a token that makes names of files written by
// concurrent or retried tasks unique.
func NewWriteToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

func NewFileID() string {
	return uuid.NewString()
}

// BaseFileName is <fileID>_<writeToken>_<instantTime>.parquet.
func BaseFileName(fileID, writeToken, instantTime string) string {
	return fmt.Sprintf("%s_%s_%s%s", fileID, writeToken, instantTime, BaseFileExtension)
}

// LogFileName is .<fileID>_<baseInstant>.log.<version>_<writeToken>.
func LogFileName(fileID, baseInstant string, version int, writeToken string) string {
	return fmt.Sprintf(".%s_%s%s%d_%s", fileID, baseInstant, logFileMarker, version, writeToken)
}

type BaseFile struct {
	FileID      string
	WriteToken  string
	InstantTime string
}

type LogFile struct {
	FileID      string
	BaseInstant string
	Version     int
	WriteToken  string
}

func IsBaseFile(name string) bool {
	_, ok := ParseBaseFile(name)
	return ok
}

func IsLogFile(name string) bool {
	_, ok := ParseLogFile(name)
	return ok
}

func ParseBaseFile(name string) (BaseFile, bool) {
	name = path.Base(name)
	if !strings.HasSuffix(name, BaseFileExtension) || strings.HasPrefix(name, ".") {
		return BaseFile{}, false
	}
	stem := strings.TrimSuffix(name, BaseFileExtension)
	last := strings.LastIndex(stem, "_")
	if last <= 0 {
		return BaseFile{}, false
	}
	rest, instantTime := stem[:last], stem[last+1:]
	mid := strings.LastIndex(rest, "_")
	if mid <= 0 || instantTime == "" {
		return BaseFile{}, false
	}
	return BaseFile{FileID: rest[:mid], WriteToken: rest[mid+1:], InstantTime: instantTime}, true
}

func ParseLogFile(name string) (LogFile, bool) {
	name = path.Base(name)
	if !strings.HasPrefix(name, ".") {
		return LogFile{}, false
	}
	left, right, found := strings.Cut(name[1:], logFileMarker)
	if !found {
		return LogFile{}, false
	}
	sep := strings.LastIndex(left, "_")
	if sep <= 0 || sep == len(left)-1 {
		return LogFile{}, false
	}
	versionStr, token, found := strings.Cut(right, "_")
	if !found {
		return LogFile{}, false
	}
	version, err := strconv.Atoi(versionStr)
	if err != nil {
		return LogFile{}, false
	}
	return LogFile{
		FileID:      left[:sep],
		BaseInstant: left[sep+1:],
		Version:     version,
		WriteToken:  token,
	}, true
}

// CommitTime returns the instant that produced a data file: the instant of
// a base file or the base instant of a log file.
func CommitTime(name string) (string, bool) {
	if b, ok := ParseBaseFile(name); ok {
		return b.InstantTime, true
	}
	if l, ok := ParseLogFile(name); ok {
		return l.BaseInstant, true
	}
	return "", false
}
