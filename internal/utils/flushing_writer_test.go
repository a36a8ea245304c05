package utils_test

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/ngjest/internal/utils"
)

func TestFlushingWriterFlushesBufferedDestination(testInstance *testing.T) {
	var destination bytes.Buffer
	bufferedWriter := bufio.NewWriterSize(&destination, 4096)

	writer := utils.NewFlushingWriter(bufferedWriter)
	bytesWritten, writeError := writer.Write([]byte("Changes:\n"))
	require.NoError(testInstance, writeError)
	require.Equal(testInstance, 9, bytesWritten)
	require.Equal(testInstance, "Changes:\n", destination.String())
}

func TestNewFlushingWriterWrapping(testInstance *testing.T) {
	require.Nil(testInstance, utils.NewFlushingWriter(nil))

	var destination bytes.Buffer
	writer := utils.NewFlushingWriter(&destination)
	require.Same(testInstance, writer, utils.NewFlushingWriter(writer))
}
