package page

// Page scripts. Each is a function expression called with JSON arguments.

const jsChip = `(label) => {
	const chip = [...document.querySelectorAll("soma-chip")].find(el => (el.textContent || "").includes(label));
	if (!chip) return {found: false, selected: false};
	const selected = chip.getAttribute("selected") === "true" || chip.getAttribute("aria-pressed") === "true";
	return {found: true, selected};
}`

const jsClickChip = `(label) => {
	const chip = [...document.querySelectorAll("soma-chip")].find(el => (el.textContent || "").includes(label));
	if (!chip) return false;
	chip.scrollIntoView({block: "center"});
	chip.click();
	return true;
}`

const jsScrollTable = `(dy) => {
	const container = document.querySelector("soma-table-body")?.parentElement;
	if (!container) return -1;
	container.scrollBy(0, dy);
	return Math.round(container.scrollTop);
}`

// jsLocate is prepended to control scripts; it defines locate(kind, label, row)
// returning {host, target} where target is the element inside the shadow root.
// Kinds follow ControlKind.
const jsLocate = `(kind, label, row, ...rest) => {
	const lower = (s) => (s || "").toLowerCase();
	const locate = () => {
		switch (kind) {
		case 0: {
			const rows = document.querySelectorAll("soma-table-body soma-table-row");
			const host = rows[row]?.querySelector("soma-button[aria-label='" + label + "']");
			return {host, target: host?.shadowRoot?.querySelector("button") || null};
		}
		case 1: {
			const host = [...document.querySelectorAll("soma-text-field")].find(el => el.getAttribute("label") === label);
			return {host, target: host?.shadowRoot?.querySelector("input[type='number']") || null};
		}
		case 2: {
			const host = [...document.querySelectorAll("soma-checkbox")].find(el => lower(el.getAttribute("label")).includes(lower(label)));
			return {host, target: host?.shadowRoot?.querySelector("input[type='checkbox']") || null};
		}
		case 3: {
			const host = [...document.querySelectorAll("soma-button")].find(el => lower(el.getAttribute("aria-label")).includes(lower(label)));
			return {host, target: host?.shadowRoot?.querySelector("button") || null};
		}
		case 4: {
			const host = document.querySelector("soma-input-bank-password");
			const keys = host?.shadowRoot ? [...host.shadowRoot.querySelectorAll("button")] : [];
			return {host, target: keys.find(b => (b.textContent || "").includes(label)) || null};
		}
		}
		return {host: null, target: null};
	};
	const {host, target} = locate();
	const fire = (el) => {
		for (const type of ["pointerdown", "pointerup", "click"]) {
			el.dispatchEvent(new PointerEvent(type, {bubbles: true, composed: true, pointerType: "mouse"}));
		}
	};
`

const jsState = `
	return {
		present: !!host,
		ready: !!target,
		enabled: !!target && !target.disabled,
		checked: !!target && !!target.checked,
	};
}`

const jsPointerClick = `
	const el = target || host;
	if (!el) return false;
	el.scrollIntoView({block: "center"});
	fire(el);
	return true;
}`

const jsSetValue = `
	if (!target) return false;
	target.value = rest[0];
	target.dispatchEvent(new Event("input", {bubbles: true}));
	target.dispatchEvent(new Event("change", {bubbles: true}));
	return true;
}`

const jsSetChecked = `
	if (!target) return false;
	if (!target.checked) {
		target.checked = true;
		target.dispatchEvent(new Event("input", {bubbles: true}));
		target.dispatchEvent(new Event("change", {bubbles: true}));
	}
	return true;
}`

// jsBalance reads the checkout "Saldo disponível" description, or the bold
// amount span of the account statement page.
const jsBalance = `() => {
	const desc = [...document.querySelectorAll("soma-description")].find(el => /Saldo disponível/i.test(el.textContent || ""));
	if (desc) return desc.textContent;
	const span = [...document.querySelectorAll("span")].find(el =>
		(el.textContent || "").trim().startsWith("R$") && (el.getAttribute("style") || "").includes("font-weight: 500"));
	return span ? span.textContent : "";
}`
