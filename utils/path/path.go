package path

import (
	"os"
	"path/filepath"
	"runtime"
)

// RootPath 傳回專案根目錄（以本檔位置往上兩層推回）
func RootPath() string {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		panic("cannot resolve caller location")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(filename), "..", ".."))
}

// Resolve 相對路徑以 base 為根，絕對路徑原樣回傳
func Resolve(base string, elem ...string) string {
	if len(elem) > 0 && filepath.IsAbs(elem[len(elem)-1]) {
		return elem[len(elem)-1]
	}
	return filepath.Join(append([]string{base}, elem...)...)
}

// Exists 路徑是否存在
func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}
