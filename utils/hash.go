package utils

import (
	"crypto/md5"
	"encoding/hex"
	"path/filepath"
)

// BytesMD5 计算字节数组MD5
func BytesMD5(data []byte) string {
	hash := md5.New()
	hash.Write(data)
	return hex.EncodeToString(hash.Sum(nil))
}

// PathMD5 计算规范化绝对路径的MD5，同一目录的不同写法得到相同结果
func PathMD5(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return BytesMD5([]byte(filepath.Clean(abs))), nil
}
