package translate

import (
	"fmt"
	"sync"

	"github.com/longbridgeapp/opencc"
)

// scriptPairs maps (source, target) language pairs that only differ in
// Chinese script to the OpenCC conversion handling them.
var scriptPairs = map[[2]string]string{
	{"zh-CN", "zh-TW"}: "s2t",
	{"zh-TW", "zh-CN"}: "t2s",
	{"zh-CN", "zh-HK"}: "s2hk",
}

// ScriptConversion returns the OpenCC conversion for a language pair, or
// "" when the pair needs real translation.
func ScriptConversion(source, target string) string {
	return scriptPairs[[2]string{source, target}]
}

// converters lazily loads and keeps one OpenCC instance per conversion;
// loading the dictionaries is slow.
type converters struct {
	mu sync.Mutex
	cc map[string]*opencc.OpenCC
}

func (c *converters) get(conversion string) (*opencc.OpenCC, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cc, ok := c.cc[conversion]; ok {
		return cc, nil
	}
	cc, err := opencc.New(conversion)
	if err != nil {
		return nil, fmt.Errorf("loading OpenCC %s: %w", conversion, err)
	}
	if c.cc == nil {
		c.cc = make(map[string]*opencc.OpenCC)
	}
	c.cc[conversion] = cc
	return cc, nil
}

// convert runs text through the named conversion.
func (c *converters) convert(conversion, text string) (string, error) {
	cc, err := c.get(conversion)
	if err != nil {
		return "", err
	}
	return cc.Convert(text)
}
