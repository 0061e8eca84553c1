package game

import "encoding/hex"

// addonInfoHex is the zlib-compressed addon list an Ascension WotLK client
// sends as the tail of CMSG_AUTH_SESSION. It's opaque binary data captured
// from a real client, not something meant to be hand-derived, so it is kept
// as-is rather than synthesized to match an illustrative byte count.
const addonInfoHex = "9e020000789c75d2c14ec3300cc6f1f0145c780fce744853a5e542c319b9c9476a3571aa341d6cd7bdd19e107103c93dff2c5bfacb8fc6982ef1f54a357cbcf889714686b4f7de3ce4afa793f9e71542ba6cbe7111d53aaa23ea3a9565875b4bf864a4605938d3a20db10496a82e38508204aa1a953c523b95b86b0edf4dc1578c5b74a5a455c1a33d4ca4173ada61ab675c744c9765d265e3143a9259d55ed6055e3fd837e4a1f8196d2f8f255f8b2a6fc44105f75b54bfe738c3925084d6db9519fa13b84a01c3cc29ed310bea5fbbdf9ee30fe33bc901"

var addonInfo = mustDecodeHex(addonInfoHex)

func mustDecodeHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic("game: malformed addonInfoHex constant: " + err.Error())
	}
	return b
}
