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

package modfss3

const (
	DEFAULT_ENDPOINT = "s3.amazonaws.com"
	DEFAULT_BUCKET   = "tablestore"
)

type Config struct {
	Endpoint        string `json:"endpoint" yaml:"endpoint"`
	Bucket          string `json:"bucket" yaml:"bucket"`
	Prefix          string `json:"prefix" yaml:"prefix"`
	UseSSL          bool   `json:"useSSL" yaml:"useSSL"`
	Region          string `json:"region" yaml:"region"`
	AccessKeyID     string `json:"accessKeyID" yaml:"accessKeyID"`
	SecretAccessKey string `json:"secretAccessKey" yaml:"secretAccessKey"`
}

func (c Config) endpoint() string {
	if len(c.Endpoint) > 0 {
		return c.Endpoint
	}
	return DEFAULT_ENDPOINT
}

func (c Config) bucket() string {
	if len(c.Bucket) > 0 {
		return c.Bucket
	}
	return DEFAULT_BUCKET
}
