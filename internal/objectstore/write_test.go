package objectstore

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestWriteFlushesOnePartMidStreamThenRemainderOnClose drives six 2 MB
// WRITEs (12 MB total) through OpenWrite/Write/CloseWrite and checks the
// multipart-upload invariant: the buffered part crosses partFlushThreshold
// exactly once before CloseWrite runs, and the bytes assembled by
// CompleteMultipartUpload equal the concatenation of the writes in order.
func TestWriteFlushesOnePartMidStreamThenRemainderOnClose(t *testing.T) {
	a, fake := newTestAdapter()
	ctx := context.Background()

	const chunkSize = 2 * 1000 * 1000
	chunks := make([][]byte, 6)
	var want bytes.Buffer
	for i := range chunks {
		chunk := bytes.Repeat([]byte{byte('A' + i)}, chunkSize)
		chunks[i] = chunk
		want.Write(chunk)
	}

	wid, err := a.OpenWrite(ctx, "/home/test/big.bin")
	require.NoError(t, err)

	for _, chunk := range chunks {
		require.NoError(t, a.Write(ctx, wid, chunk))
	}

	assert.Equal(t, 1, fake.uploadPartCalls, "exactly one part should flush mid-stream before CLOSE")

	require.NoError(t, a.CloseWrite(ctx, wid))

	assert.Equal(t, 2, fake.uploadPartCalls, "CLOSE must flush the buffered remainder as a second part")
	assert.Equal(t, want.Bytes(), fake.objects["home/test/big.bin"])
}
