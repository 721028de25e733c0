package files

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"crypto/md5"
	"fmt"
	"io"
	"os"
	"sync"

	log "github.com/sirupsen/logrus"
)

//newIndexedFile takes in a file path, opens it up and parses out some metadata
func newIndexedFile(filePath string) (*IndexedFile, error) {
	toReturn := new(IndexedFile)
	toReturn.Path = filePath

	fileHandle, err := os.Open(filePath)
	if err != nil {
		return toReturn, err
	}
	defer fileHandle.Close()

	fInfo, err := fileHandle.Stat()
	if err != nil {
		return toReturn, err
	}
	toReturn.Length = fInfo.Size()
	toReturn.ModTime = fInfo.ModTime()

	fHash, err := getFileHash(fileHandle, fInfo)
	if err != nil {
		return toReturn, err
	}
	toReturn.Hash = fHash

	head, err := readHead(fileHandle)
	if err != nil {
		return toReturn, err
	}
	if len(head) >= 2 && bytes.Equal(head[:2], gzipMagic) {
		toReturn.Compressed = true
		if _, err := fileHandle.Seek(0, io.SeekStart); err != nil {
			return toReturn, err
		}
		gzipReader, err := gzip.NewReader(fileHandle)
		if err != nil {
			return toReturn, fmt.Errorf("%w: %v", ErrUnknownContainer, err)
		}
		head, err = readHead(gzipReader)
		if err != nil {
			return toReturn, err
		}
	}

	toReturn.Container, err = sniffContainer(head)
	return toReturn, err
}

func readHead(r io.Reader) ([]byte, error) {
	head, err := bufio.NewReader(r).Peek(4)
	if err == io.EOF || err == bufio.ErrBufferFull {
		err = nil
	}
	return head, err
}

//getFileHash md5's the first 15000 bytes of a file
func getFileHash(fileHandle *os.File, fInfo os.FileInfo) (string, error) {
	hash := md5.New()

	if fInfo.Size() >= 15000 {
		if _, err := io.CopyN(hash, fileHandle, 15000); err != nil {
			return "", err
		}
	} else {
		if _, err := io.Copy(hash, fileHandle); err != nil {
			return "", err
		}
	}
	//be nice and reset the file handle
	if _, err := fileHandle.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", hash.Sum(nil)), nil
}

//IndexFiles takes in a list of capture files and a number of threads and parses
//some metadata out of the files. Files which cannot be indexed are logged and left out.
func IndexFiles(files []string, indexingThreads int, logger log.FieldLogger) []*IndexedFile {
	n := len(files)
	output := make([]*IndexedFile, n)
	indexingWG := new(sync.WaitGroup)

	if indexingThreads < 1 {
		indexingThreads = 1
	}

	for i := 0; i < indexingThreads; i++ {
		indexingWG.Add(1)

		go func(start int, jump int) {
			defer indexingWG.Done()
			for j := start; j < n; j += jump {
				indexedFile, err := newIndexedFile(files[j])
				if err != nil {
					logger.WithFields(log.Fields{
						"file":  files[j],
						"error": err.Error(),
					}).Warn("An error was encountered while indexing a file.")
					continue
				}
				output[j] = indexedFile
			}
		}(i, indexingThreads)
	}

	indexingWG.Wait()

	// remove all nil values from the slice
	indexedFiles := make([]*IndexedFile, 0, len(output))
	for _, file := range output {
		if file != nil {
			indexedFiles = append(indexedFiles, file)
		}
	}
	return indexedFiles
}
