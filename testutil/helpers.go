package testutil

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"os"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

func Byf(format string, args ...interface{}) {
	By(fmt.Sprintf(format, args...))
	fmt.Fprintln(GinkgoWriter)
}

func ExpectBytesEqual(a, b []byte) {
	ExpectBytesEqualWithOffset(1, a, b)
}

func ExpectBytesEqualWithOffset(off int, a, b []byte) {
	if !bytes.Equal(a, b) {
		ExpectWithOffset(off+1, a).To(Equal(b))
	}
}

func TmpFileName() string {
	f, err := ioutil.TempFile("", "go_test_tmp_")
	Expect(err).To(BeNil())
	filename := f.Name()
	err = f.Close()
	Expect(err).To(BeNil())
	err = os.Remove(filename)
	Expect(err).To(BeNil())
	return filename
}
