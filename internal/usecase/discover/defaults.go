package discover

// DefaultQueries seed the search producers when seeds.yaml provides
// none. English and Chinese, covering the major verticals.
var DefaultQueries = []string{
	"container shipping news",
	"ocean freight rates news",
	"air cargo industry news",
	"rail freight news",
	"trucking industry news",
	"freight forwarder news site",
	"supply chain disruption news",
	"port congestion updates",
	"maritime logistics news",
	"customs tariff news",
	"cold chain logistics news",
	"warehouse automation news",
	"last mile delivery news",
	"shipping line earnings news",
	"logistics technology news",
	"intermodal transport news",
	"freight market analysis",
	"cargo airline news",
	"panama canal shipping news",
	"container terminal news",
	"物流行业新闻",
	"海运运价新闻",
	"集装箱航运资讯",
	"货运代理新闻",
	"供应链新闻网站",
}

// DefaultSeeds are industry hub pages crawled for outbound links.
var DefaultSeeds = []string{
	"https://www.joc.com/",
	"https://www.freightwaves.com/",
	"https://theloadstar.com/",
	"https://www.supplychaindive.com/",
	"https://splash247.com/",
	"https://gcaptain.com/",
	"https://aircargonews.net/",
	"https://www.railfreight.com/",
	"https://www.porttechnology.org/",
	"https://www.maritime-executive.com/",
	"https://www.chineseport.cn/",
	"https://www.56products.com/",
}

// DefaultBlocklist drops social, search, and shopping domains from scan
// output. Matched by domain suffix.
var DefaultBlocklist = []string{
	"facebook.com", "twitter.com", "x.com", "linkedin.com",
	"instagram.com", "youtube.com", "tiktok.com", "reddit.com",
	"pinterest.com", "weibo.com", "zhihu.com",
	"google.com", "bing.com", "duckduckgo.com", "baidu.com",
	"yahoo.com", "wikipedia.org",
	"amazon.com", "alibaba.com", "aliexpress.com", "ebay.com",
	"taobao.com", "jd.com",
}
