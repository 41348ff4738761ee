package main

var (
	SkillsHeading    = "Skills & Expertise"
	SkillsSubheading = "Technologies I work with to bring ideas to life"
	SkillsOutro      = `I'm constantly learning and adapting to new technologies, focused on cloud
	infrastructure, automation, frontend engineering, mobile development, and building full-stack products.`

	PortfolioHeading    = "Portfolio Showcase"
	PortfolioSubheading = `Explore my journey through projects, certifications, and technical expertise.
	Each section represents a milestone in my continuous learning path.`

	CertificatesHeading    = "Certificates"
	CertificatesSubheading = "A curated selection of my certifications across development, cloud, and DevOps."

	ContactSideIntro = "Have something to discuss? Send me a message, and let's start a conversation."
	ContactError     = "Sorry, there was an error sending your message. Please try again later."

	FooterCallout = "Ready to work together?"
)
