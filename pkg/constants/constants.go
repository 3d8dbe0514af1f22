package constants

const (
	NULL_ADDRESS = "0x0000000000000000000000000000000000000000"
	DEAD_ADDRESS = "0x000000000000000000000000000000000000dead"

	IPFS_SCHEME       = "ipfs://"
	IPFS_GATEWAY      = "https://ipfs.io/ipfs/"
	OPENSEA_WEB_URL   = "https://opensea.io"
	OPENSEA_LOGO_URL  = "https://files.readme.io/566c72b-opensea-logomark-full-colored.png"
	ETHER_SYMBOL      = "Ξ"
	EMBED_BLANK_FIELD = "​"
)
