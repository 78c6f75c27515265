package testutil

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// TestDataGenerator provides methods for generating test data.
type TestDataGenerator struct {
	rand *rand.Rand
}

// NewTestDataGenerator creates a new test data generator with a seeded random source.
func NewTestDataGenerator(seed int64) *TestDataGenerator {
	return &TestDataGenerator{
		rand: rand.New(rand.NewSource(seed)),
	}
}

// GenerateKeys generates count sorted keys under prefix.
func (g *TestDataGenerator) GenerateKeys(count int, prefix string) []string {
	keys := make([]string, count)
	for i := range keys {
		keys[i] = fmt.Sprintf("%sobject-%04d.txt", prefix, i)
	}
	return keys
}

// GenerateObjectList generates a list of listing entries.
func (g *TestDataGenerator) GenerateObjectList(count int, prefix string) []types.Object {
	objects := make([]types.Object, count)
	baseTime := time.Now().Add(-24 * time.Hour)

	for i, key := range g.GenerateKeys(count, prefix) {
		size := int64(g.rand.Intn(1000000) + 1000)
		objects[i] = CreateTestObject(key, size, baseTime.Add(time.Duration(i)*time.Minute))
	}

	return objects
}

// GenerateCommonPrefixes generates common prefixes for directory-like structures.
func (g *TestDataGenerator) GenerateCommonPrefixes(count int, base string) []types.CommonPrefix {
	prefixes := make([]types.CommonPrefix, count)
	for i := range prefixes {
		prefixes[i] = types.CommonPrefix{
			Prefix: StringPtr(fmt.Sprintf("%sdir%02d/", base, i)),
		}
	}
	return prefixes
}

// GenerateAPIError generates a service error with the given code.
func (g *TestDataGenerator) GenerateAPIError(code, message string) smithy.APIError {
	return &smithy.GenericAPIError{Code: code, Message: message, Fault: smithy.FaultClient}
}

// GenerateCopyObjectResult generates a copy result.
func (g *TestDataGenerator) GenerateCopyObjectResult() *types.CopyObjectResult {
	return &types.CopyObjectResult{
		ETag:         StringPtr(fmt.Sprintf(`"%x"`, g.rand.Int63())),
		LastModified: TimePtr(time.Now()),
	}
}

// GenerateObjectMetadata generates user metadata.
func (g *TestDataGenerator) GenerateObjectMetadata(size int64) map[string]string {
	return map[string]string{
		"test-key-1": fmt.Sprintf("test-value-%d", g.rand.Intn(100)),
		"test-key-2": fmt.Sprintf("test-value-%d", g.rand.Intn(100)),
		"size":       fmt.Sprintf("%d", size),
	}
}
