// Copyright 2025 ampscore Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package blob

import (
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"

	"github.com/ampscore/ampscore/config"
	"github.com/ampscore/ampscore/model/panel"
)

var (
	endpoint        = os.Getenv("S3_ENDPOINT")
	accessKeyID     = os.Getenv("S3_ACCESS_KEY_ID")
	secretAccessKey = os.Getenv("S3_SECRET_ACCESS_KEY")
)

func TestS3(t *testing.T) {
	if endpoint == "" || accessKeyID == "" || secretAccessKey == "" {
		t.Skip("S3 environment variables are not set, skipping S3 tests")
	}

	// create client
	client, err := NewS3(config.S3Config{
		Endpoint:        endpoint,
		AccessKeyID:     accessKeyID,
		SecretAccessKey: secretAccessKey,
		Bucket:          "ampscore-test",
		Prefix:          "panels",
	})
	assert.NoError(t, err)

	// create bucket if not exists
	err = client.Client.MakeBucket(context.Background(), client.bucket, minio.MakeBucketOptions{})
	assert.NoError(t, err)

	// write a temp file
	w, done, err := client.Create("test")
	assert.NoError(t, err)
	_, err = w.Write([]byte("hello world"))
	assert.NoError(t, err)
	assert.NoError(t, w.Close())
	<-done

	// read the file
	r, err := client.Open("test")
	assert.NoError(t, err)
	content := make([]byte, 11)
	_, err = r.Read(content)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, "hello world", string(content))
}

func TestS3Panel(t *testing.T) {
	if endpoint == "" || accessKeyID == "" || secretAccessKey == "" {
		t.Skip("S3 environment variables are not set, skipping S3 tests")
	}

	client, err := NewS3(config.S3Config{
		Endpoint:        endpoint,
		AccessKeyID:     accessKeyID,
		SecretAccessKey: secretAccessKey,
		Bucket:          "ampscore-test",
		Prefix:          "panels",
	})
	assert.NoError(t, err)
	err = client.Client.MakeBucket(context.Background(), client.bucket, minio.MakeBucketOptions{})
	assert.NoError(t, err)

	p := &panel.Panel{
		NumFeatures:  4,
		Features:     []int32{1, 3},
		FeatureNames: []string{"CD45", "PD-L1"},
		Weights:      []float32{0.75, -1.25},
		Calibration:  panel.Calibration{MinRaw: -2, MaxRaw: 2, Cutpoint: 0},
		Seed:         7,
		CreatedAt:    time.Now().UTC(),
	}

	// store the panel
	w, done, err := client.Create("panel.amp")
	assert.NoError(t, err)
	assert.NoError(t, p.Marshal(w))
	assert.NoError(t, w.Close())
	<-done

	// load the panel
	r, err := client.Open("panel.amp")
	assert.NoError(t, err)
	var decoded panel.Panel
	assert.NoError(t, decoded.Unmarshal(r))
	assert.NoError(t, r.Close())
	assert.Equal(t, p, &decoded)
}
