package document

import (
	"github.com/unidoc/unioffice/v2/common/license"
)

// SetOfficeLicense 设置 unioffice 的计量许可证，key 为空时不做任何事。
func SetOfficeLicense(key string) error {
	if key == "" {
		return nil
	}
	return license.SetMeteredKey(key)
}
